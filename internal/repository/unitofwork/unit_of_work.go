package unitofwork

import (
	"context"

	"ai-tutor-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	KnowledgeItemRepository() contract.KnowledgeItemRepository
	ContentVectorRepository() contract.ContentVectorRepository
	GraphEdgeRepository() contract.GraphEdgeRepository
	ChatTranscriptRepository() contract.ChatTranscriptRepository
}
