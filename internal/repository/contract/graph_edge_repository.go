package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
)

type GraphEdgeRepository interface {
	Create(ctx context.Context, edge *entity.GraphEdge) error
	// FindAll returns edges in creation order.
	FindAll(ctx context.Context, userID string, filter entity.EdgeFilter) ([]*entity.GraphEdge, error)
	DeleteTouching(ctx context.Context, userID, contentID string) error
}
