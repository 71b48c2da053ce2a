package service

import (
	"context"
	"strings"
	"time"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/pkg/memory"

	"github.com/google/uuid"
)

type MemoryStore interface {
	Record(ctx context.Context, userID string, turns []entity.ChatTurn, extra map[string]interface{}) (*entity.MemoryRecord, error)
	Recall(ctx context.Context, userID, queryText string, limit int) ([]memory.Memory, error)
	Delete(ctx context.Context, userID, memoryID string) error
}

// IMemoryService executes the add/search/delete commands of the memory endpoint.
type IMemoryService interface {
	Execute(ctx context.Context, userID string, req *dto.MemoryCommandRequest) (*dto.MemoryCommandResponse, error)
}

type memoryService struct {
	store MemoryStore
}

func NewMemoryService(store MemoryStore) IMemoryService {
	return &memoryService{store: store}
}

func (s *memoryService) Execute(ctx context.Context, userID string, req *dto.MemoryCommandRequest) (*dto.MemoryCommandResponse, error) {
	args := req.Args
	switch req.Command {
	case "add":
		content := strings.TrimSpace(args.Content)
		if content == "" {
			return nil, apperror.New(apperror.KindValidation, "args.content is required")
		}
		record, err := s.store.Record(ctx, userID, []entity.ChatTurn{{
			Id:        uuid.NewString(),
			Role:      entity.ChatRoleUser,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}}, args.Metadata)
		if err != nil {
			return nil, err
		}
		return &dto.MemoryCommandResponse{
			Success: true,
			Results: []dto.MemoryResult{{
				MemoryId:  record.MemoryId,
				Content:   content,
				Metadata:  record.Metadata,
				CreatedAt: record.CreatedAt,
			}},
		}, nil

	case "search":
		if strings.TrimSpace(args.Query) == "" {
			return nil, apperror.New(apperror.KindValidation, "args.query is required")
		}
		memories, err := s.store.Recall(ctx, userID, args.Query, args.Limit)
		if err != nil {
			return nil, err
		}
		results := make([]dto.MemoryResult, 0, len(memories))
		for _, m := range memories {
			results = append(results, dto.MemoryResult{
				MemoryId:  m.MemoryID,
				Content:   m.Content,
				Metadata:  m.Metadata,
				CreatedAt: m.CreatedAt,
				Score:     m.Score,
				Source:    m.Source,
			})
		}
		return &dto.MemoryCommandResponse{Success: true, Results: results}, nil

	case "delete":
		if args.MemoryId == "" {
			return nil, apperror.New(apperror.KindValidation, "args.memoryId is required")
		}
		if err := s.store.Delete(ctx, userID, args.MemoryId); err != nil {
			return nil, err
		}
		return &dto.MemoryCommandResponse{Success: true}, nil
	}

	return nil, apperror.Newf(apperror.KindValidation, "unknown command %q", req.Command)
}
