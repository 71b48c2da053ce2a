package contract

import (
	"context"

	"ai-tutor-be/internal/entity"

	"github.com/google/uuid"
)

// ContentVectorRepository stores embeddings in the collection chosen by content type.
// Every read is scoped to userID.
type ContentVectorRepository interface {
	Create(ctx context.Context, vector *entity.ContentVector) error
	// SearchSimilar returns rows ordered by descending cosine similarity.
	SearchSimilar(ctx context.Context, userID string, embedding []float32, filter entity.VectorFilter) ([]*entity.ScoredContentVector, error)
	FindAll(ctx context.Context, userID string, filter entity.VectorFilter) ([]*entity.ContentVector, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByContentId(ctx context.Context, userID string, contentType entity.ContentType, contentID string) error
}
