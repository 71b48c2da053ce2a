package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
)

type ChatTranscriptRepository interface {
	Create(ctx context.Context, transcript *entity.ChatTranscript) error
	FindRecent(ctx context.Context, userID string, limit int) ([]*entity.ChatTranscript, error)
}
