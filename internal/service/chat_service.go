package service

import (
	"context"
	"encoding/json"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/pipeline"
	"ai-tutor-be/pkg/stream"
)

// Request-level step labels reported when a chat fails outside the pipeline.
const (
	ChatStepInit    = "INIT"
	ChatStepAuth    = "AUTH"
	ChatStepProcess = "PROCESS"
	ChatStepStream  = "STREAM"
)

type IChatService interface {
	Chat(ctx context.Context, userID string, req *dto.ChatRequest, sink stream.Sink) (*pipeline.Result, error)
}

type Runner interface {
	Run(ctx context.Context, req pipeline.Request, sink stream.Sink) (*pipeline.Result, error)
}

type chatService struct {
	users       contract.UserRepository
	runner      Runner
	transcripts IPublisherService
	events      events.Publisher
	logger      logger.ILogger
}

func NewChatService(
	users contract.UserRepository,
	runner Runner,
	transcripts IPublisherService,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IChatService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	return &chatService{
		users:       users,
		runner:      runner,
		transcripts: transcripts,
		events:      eventPublisher,
		logger:      log,
	}
}

func (s *chatService) Chat(ctx context.Context, userID string, req *dto.ChatRequest, sink stream.Sink) (*pipeline.Result, error) {
	if userID == "" {
		return nil, apperror.WithStep(apperror.New(apperror.KindAuth, "unauthorized"), ChatStepAuth, apperror.KindAuth)
	}

	profile, err := s.users.FindProfile(ctx, userID)
	if err != nil {
		return nil, apperror.WithStep(apperror.Wrap(apperror.KindPersistence, err, "profile lookup failed"), ChatStepProcess, apperror.KindPersistence)
	}
	if profile == nil {
		return nil, apperror.WithStep(apperror.New(apperror.KindNotFound, "user not found"), ChatStepProcess, apperror.KindNotFound)
	}

	turns := req.Turns()
	result, err := s.runner.Run(ctx, pipeline.Request{
		UserID:   userID,
		Messages: turns,
		Profile:  profile,
	}, sink)
	if err != nil {
		return nil, err
	}

	s.publishTranscript(ctx, userID, turns[len(turns)-1].Content, result)
	if err := s.events.Publish(ctx, events.New(events.TypeChatCompleted, map[string]interface{}{
		"user_id":    userID,
		"message_id": result.MessageID,
		"mood":       result.EmotionalState.Mood,
		"success":    result.Success,
	})); err != nil {
		s.logger.Warn("CHAT", "Failed to publish chat event", map[string]interface{}{"error": err.Error()})
	}

	return result, nil
}

func (s *chatService) publishTranscript(ctx context.Context, userID, message string, result *pipeline.Result) {
	if s.transcripts == nil {
		return
	}
	payload, err := json.Marshal(dto.ChatTranscriptMessage{
		RunId:          result.MessageID,
		UserId:         userID,
		Message:        message,
		Response:       result.Reply,
		EmotionalState: result.EmotionalState,
		ReActSteps:     result.ReActSteps,
		CreatedAt:      result.CreatedAt,
	})
	if err == nil {
		err = s.transcripts.Publish(context.WithoutCancel(ctx), payload)
	}
	if err != nil {
		s.logger.Error("CHAT", "Failed to queue chat transcript", map[string]interface{}{
			"user_id": userID,
			"error":   apperror.Wrap(apperror.KindPersistence, err, "transcript publish failed").Error(),
		})
	}
}
