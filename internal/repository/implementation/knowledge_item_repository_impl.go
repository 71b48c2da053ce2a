package implementation

import (
	"context"
	"errors"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KnowledgeItemRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeItemMapper
}

func NewKnowledgeItemRepository(db *gorm.DB) contract.KnowledgeItemRepository {
	return &KnowledgeItemRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeItemMapper(),
	}
}

func (r *KnowledgeItemRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeItem, error) {
	var m model.KnowledgeItem
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *KnowledgeItemRepositoryImpl) Create(ctx context.Context, item *entity.KnowledgeItem) error {
	m := r.mapper.ToModel(item)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeItemRepositoryImpl) Update(ctx context.Context, item *entity.KnowledgeItem) error {
	m := r.mapper.ToModel(item)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeItemRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.KnowledgeItem{}, "id = ?", id).Error
}

func (r *KnowledgeItemRepositoryImpl) FindByID(ctx context.Context, userID string, id uuid.UUID) (*entity.KnowledgeItem, error) {
	return r.findOne(ctx, specification.ByUserID{UserID: userID}, specification.ByID{ID: id})
}

func (r *KnowledgeItemRepositoryImpl) FindLatestByHash(ctx context.Context, userID string, contentType entity.ContentType, hash string) (*entity.KnowledgeItem, error) {
	return r.findOne(ctx,
		specification.ByUserID{UserID: userID},
		specification.ByContentTypes{Types: []entity.ContentType{contentType}},
		specification.ByContentHash{Hash: hash},
		specification.OrderBy{Field: "version", Desc: true},
	)
}
