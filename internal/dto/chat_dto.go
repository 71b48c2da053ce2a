package dto

import (
	"time"

	"ai-tutor-be/internal/entity"
)

type ChatMessage struct {
	Id        string    `json:"id"`
	Role      string    `json:"role" validate:"required,oneof=user assistant system"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

func (r *ChatRequest) Turns() []entity.ChatTurn {
	turns := make([]entity.ChatTurn, 0, len(r.Messages))
	for _, m := range r.Messages {
		turns = append(turns, entity.ChatTurn{
			Id:        m.Id,
			Role:      entity.ChatRole(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return turns
}

// ChatTranscriptMessage travels on the in-process bus after a successful turn.
type ChatTranscriptMessage struct {
	RunId          string                `json:"run_id"`
	UserId         string                `json:"user_id"`
	Message        string                `json:"message"`
	Response       string                `json:"response"`
	EmotionalState entity.EmotionalState `json:"emotional_state"`
	ReActSteps     []entity.ReActStep    `json:"react_steps"`
	CreatedAt      time.Time             `json:"created_at"`
}
