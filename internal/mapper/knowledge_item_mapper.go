package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type KnowledgeItemMapper struct{}

func NewKnowledgeItemMapper() *KnowledgeItemMapper {
	return &KnowledgeItemMapper{}
}

func (m *KnowledgeItemMapper) ToEntity(k *model.KnowledgeItem) *entity.KnowledgeItem {
	if k == nil {
		return nil
	}
	return &entity.KnowledgeItem{
		Id:                k.Id,
		UserId:            k.UserId,
		ContentType:       entity.ContentType(k.ContentType),
		Title:             k.Title,
		Content:           k.Content,
		FileType:          k.FileType,
		SourceURL:         k.SourceURL,
		ContentHash:       k.ContentHash,
		Version:           k.Version,
		PreviousVersionId: k.PreviousVersionId,
		VectorId:          k.VectorId,
		Metadata:          fromJSON(k.Metadata),
		CreatedAt:         k.CreatedAt,
		UpdatedAt:         k.UpdatedAt,
	}
}

func (m *KnowledgeItemMapper) ToModel(k *entity.KnowledgeItem) *model.KnowledgeItem {
	if k == nil {
		return nil
	}
	return &model.KnowledgeItem{
		Id:                k.Id,
		UserId:            k.UserId,
		ContentType:       string(k.ContentType),
		Title:             k.Title,
		Content:           k.Content,
		FileType:          k.FileType,
		SourceURL:         k.SourceURL,
		ContentHash:       k.ContentHash,
		Version:           k.Version,
		PreviousVersionId: k.PreviousVersionId,
		VectorId:          k.VectorId,
		Metadata:          toJSON(k.Metadata),
		CreatedAt:         k.CreatedAt,
		UpdatedAt:         k.UpdatedAt,
	}
}
