package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToProfile(u *model.User) *entity.UserProfile {
	if u == nil {
		return nil
	}
	interests := make([]string, 0, len(u.Interests))
	interests = append(interests, u.Interests...)
	return &entity.UserProfile{
		UserId:               u.Id,
		Email:                u.Email,
		Name:                 u.Name,
		LearningStyle:        u.LearningStyle,
		DifficultyPreference: u.DifficultyPreference,
		Interests:            interests,
		Age:                  u.Age,
	}
}
