package implementation

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/scope"
	"ai-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GraphEdgeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GraphEdgeMapper
}

func NewGraphEdgeRepository(db *gorm.DB) contract.GraphEdgeRepository {
	return &GraphEdgeRepositoryImpl{
		db:     db,
		mapper: mapper.NewGraphEdgeMapper(),
	}
}

func (r *GraphEdgeRepositoryImpl) Create(ctx context.Context, edge *entity.GraphEdge) error {
	m := r.mapper.ToModel(edge)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*edge = *r.mapper.ToEntity(m)
	return nil
}

func (r *GraphEdgeRepositoryImpl) FindAll(ctx context.Context, userID string, filter entity.EdgeFilter) ([]*entity.GraphEdge, error) {
	var models []*model.GraphEdge
	query := r.db.WithContext(ctx)
	for _, spec := range specification.EdgeFilterSpecs(userID, filter) {
		query = spec.Apply(query)
	}
	if err := query.Scopes(scope.OrderByCreatedAsc).Find(&models).Error; err != nil {
		return nil, err
	}

	edges := make([]*entity.GraphEdge, len(models))
	for i, m := range models {
		edges[i] = r.mapper.ToEntity(m)
	}
	return edges, nil
}

func (r *GraphEdgeRepositoryImpl) DeleteTouching(ctx context.Context, userID, contentID string) error {
	query := specification.ByUserID{UserID: userID}.Apply(r.db.WithContext(ctx))
	query = specification.TouchingContent{ContentID: contentID}.Apply(query)
	return query.Delete(&model.GraphEdge{}).Error
}
