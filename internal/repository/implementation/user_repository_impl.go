package implementation

import (
	"context"
	"errors"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) FindProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	var m model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToProfile(&m), nil
}

func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, userID string, update entity.ProfileUpdate) (*entity.UserProfile, error) {
	var m model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&m).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if update.Name != nil {
			updates["name"] = *update.Name
		}
		if update.LearningStyle != nil {
			updates["learning_style"] = *update.LearningStyle
		}
		if update.DifficultyPreference != nil {
			updates["difficulty_preference"] = *update.DifficultyPreference
		}
		if update.Interests != nil {
			updates["interests"] = datatypes.JSONSlice[string](update.Interests)
		}
		if update.Age != nil {
			updates["age"] = *update.Age
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).First(&m).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToProfile(&m), nil
}
