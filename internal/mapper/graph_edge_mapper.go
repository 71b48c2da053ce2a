package mapper

import (
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type GraphEdgeMapper struct{}

func NewGraphEdgeMapper() *GraphEdgeMapper {
	return &GraphEdgeMapper{}
}

func (m *GraphEdgeMapper) ToEntity(e *model.GraphEdge) *entity.GraphEdge {
	if e == nil {
		return nil
	}
	return &entity.GraphEdge{
		Id:               e.Id,
		UserId:           e.UserId,
		SourceContentId:  e.SourceContentId,
		TargetContentId:  e.TargetContentId,
		RelationshipType: e.RelationshipType,
		Metadata:         fromJSON(e.Metadata),
		CreatedAt:        e.CreatedAt,
	}
}

func (m *GraphEdgeMapper) ToModel(e *entity.GraphEdge) *model.GraphEdge {
	if e == nil {
		return nil
	}
	return &model.GraphEdge{
		Id:               e.Id,
		UserId:           e.UserId,
		SourceContentId:  e.SourceContentId,
		TargetContentId:  e.TargetContentId,
		RelationshipType: e.RelationshipType,
		Metadata:         toJSON(e.Metadata),
		CreatedAt:        e.CreatedAt,
	}
}
