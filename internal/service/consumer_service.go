package service

import (
	"context"
	"encoding/json"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// IConsumerService persists chat transcripts published after each successful turn.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ChatTranscriptMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("TRANSCRIPT", "Failed to unmarshal transcript message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Malformed payloads are never retried.
		msg.Ack()
		return
	}

	steps := make([]interface{}, 0, len(payload.ReActSteps))
	for _, s := range payload.ReActSteps {
		steps = append(steps, map[string]interface{}{
			"thought":     s.Thought,
			"action":      s.Action,
			"observation": s.Observation,
		})
	}
	transcript := &entity.ChatTranscript{
		Id:       uuid.New(),
		UserId:   payload.UserId,
		RunId:    payload.RunId,
		Message:  payload.Message,
		Response: payload.Response,
		Metadata: map[string]interface{}{
			"emotional_state": map[string]interface{}{
				"mood":       payload.EmotionalState.Mood,
				"confidence": payload.EmotionalState.Confidence,
			},
			"react_steps": steps,
			"run_id":      payload.RunId,
		},
		CreatedAt: payload.CreatedAt,
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatTranscriptRepository().Create(ctx, transcript); err != nil {
		err = apperror.Wrap(apperror.KindPersistence, err, "transcript write failed")
		cs.logger.Error("TRANSCRIPT", "Failed to store chat transcript", map[string]interface{}{
			"user_id": payload.UserId,
			"run_id":  payload.RunId,
			"error":   err.Error(),
		})
		// The reply has already been streamed; a lost transcript is logged, not retried.
		msg.Ack()
		return
	}

	cs.logger.Debug("TRANSCRIPT", "Stored chat transcript", map[string]interface{}{
		"user_id": payload.UserId,
		"run_id":  payload.RunId,
	})
	msg.Ack()
}
