package pipeline

import (
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/pkg/agent"
	"ai-tutor-be/pkg/memory"
)

type Step string

const (
	StepInit         Step = "INIT"
	StepEmbedLast    Step = "EMBED_LAST"
	StepRecallMemory Step = "RECALL_MEMORY"
	StepEmotion      Step = "EMOTION"
	StepReason       Step = "REASON"
	StepPersonalize  Step = "PERSONALIZE"
	StepRecordMemory Step = "RECORD_MEMORY"
	StepStream       Step = "STREAM"
	StepDone         Step = "DONE"
	StepFail         Step = "FAIL"
)

// HybridState is threaded through every stage of one chat turn.
type HybridState struct {
	agent.State

	CurrentStep Step
	Embedding   []float32
	Recalled    []memory.Memory
	Responses   []agent.Response
	Trace       []StepTrace
}

// StepTrace is the per-stage diagnostic surfaced to callers.
type StepTrace struct {
	Step       Step   `json:"step"`
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type Request struct {
	UserID   string
	Messages []entity.ChatTurn
	Profile  *entity.UserProfile
}

type Result struct {
	MessageID      string                `json:"id"`
	Reply          string                `json:"reply"`
	CreatedAt      time.Time             `json:"created_at"`
	EmotionalState entity.EmotionalState `json:"emotional_state"`
	ReActSteps     []entity.ReActStep    `json:"react_steps"`
	Memories       []memory.Memory       `json:"memories"`
	Responses      []agent.Response      `json:"agents"`
	Trace          []StepTrace           `json:"trace"`
	Success        bool                  `json:"success"`
}
