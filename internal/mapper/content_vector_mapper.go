package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ContentVectorMapper struct{}

func NewContentVectorMapper() *ContentVectorMapper {
	return &ContentVectorMapper{}
}

func (m *ContentVectorMapper) ToEntity(v *model.ContentVector) *entity.ContentVector {
	if v == nil {
		return nil
	}
	return &entity.ContentVector{
		Id:          v.Id,
		UserId:      v.UserId,
		ContentType: entity.ContentType(v.ContentType),
		ContentId:   v.ContentId,
		Embedding:   v.Embedding.Slice(),
		Metadata:    fromJSON(v.Metadata),
		CreatedAt:   v.CreatedAt,
	}
}

func (m *ContentVectorMapper) ToModel(v *entity.ContentVector) *model.ContentVector {
	if v == nil {
		return nil
	}
	return &model.ContentVector{
		Id:          v.Id,
		UserId:      v.UserId,
		ContentType: string(v.ContentType),
		ContentId:   v.ContentId,
		Embedding:   pgvector.NewVector(v.Embedding),
		Metadata:    toJSON(v.Metadata),
		CreatedAt:   v.CreatedAt,
	}
}

func (m *ContentVectorMapper) ToEntities(models []*model.ContentVector) []*entity.ContentVector {
	entities := make([]*entity.ContentVector, len(models))
	for i, v := range models {
		entities[i] = m.ToEntity(v)
	}
	return entities
}
