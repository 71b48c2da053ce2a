package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

type ChatTurn struct {
	Id        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type EmotionalState struct {
	Mood       string `json:"mood"`
	Confidence string `json:"confidence"`
}

type ReActStep struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation"`
}

// ChatTranscript is one persisted exchange.
type ChatTranscript struct {
	Id        uuid.UUID
	UserId    string
	RunId     string
	Message   string
	Response  string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
