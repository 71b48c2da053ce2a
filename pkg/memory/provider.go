package memory

import (
	"context"
	"time"
)

// ProviderEntry is one fact returned by a structured memory provider. The id that
// binds it to the vector side is Metadata["messageId"].
type ProviderEntry struct {
	Id        string
	Content   string
	Metadata  map[string]interface{}
	CreatedAt time.Time
	Score     float64
}

// Provider is the structured side of the memory service.
type Provider interface {
	Add(ctx context.Context, content, userID string, metadata map[string]interface{}) error
	Search(ctx context.Context, query, userID string, limit int) ([]ProviderEntry, error)
	Delete(ctx context.Context, userID, memoryID string) error
	Name() string
}

const (
	MetaMessageID = "messageId"
	MetaMemoryID  = "memoryId"
	MetaMessages  = "messages"
	MetaCreatedAt = "created_at"
	MetaContent   = "content"
)
