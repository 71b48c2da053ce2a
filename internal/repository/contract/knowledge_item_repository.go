package contract

import (
	"context"

	"ai-tutor-be/internal/entity"

	"github.com/google/uuid"
)

type KnowledgeItemRepository interface {
	Create(ctx context.Context, item *entity.KnowledgeItem) error
	Update(ctx context.Context, item *entity.KnowledgeItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, userID string, id uuid.UUID) (*entity.KnowledgeItem, error)
	// FindLatestByHash returns the highest version with the same text, or nil.
	FindLatestByHash(ctx context.Context, userID string, contentType entity.ContentType, hash string) (*entity.KnowledgeItem, error)
}
