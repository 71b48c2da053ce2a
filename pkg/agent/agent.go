package agent

import (
	"context"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/pkg/llm"
)

const (
	SourceEmotional       = "emotional-agent"
	SourceReAct           = "react-agent"
	SourcePersonalization = "personalization-agent"
)

// State is what the stages read. Stages never mutate it; they return a Delta.
type State struct {
	UserID         string
	Messages       []entity.ChatTurn
	EmotionalState entity.EmotionalState
	Memories       []string
	Profile        *entity.UserProfile
	ReActSteps     []entity.ReActStep
	Reply          string
}

type Delta struct {
	EmotionalState *entity.EmotionalState `json:"emotional_state,omitempty"`
	ReActSteps     []entity.ReActStep     `json:"react_steps,omitempty"`
	Reply          *string                `json:"reply,omitempty"`
}

// Response is the envelope every stage returns, successful or not.
type Response struct {
	StateDelta       Delta     `json:"state_delta"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Confidence       float64   `json:"confidence"`
	Source           string    `json:"source"`
	Error            string    `json:"error,omitempty"`
}

// Stage is one agent step of the tutoring pipeline.
type Stage interface {
	Run(ctx context.Context, state State) (Response, error)
	Name() string
}

func (s *State) Apply(d Delta) {
	if d.EmotionalState != nil {
		s.EmotionalState = *d.EmotionalState
	}
	if d.ReActSteps != nil {
		s.ReActSteps = d.ReActSteps
	}
	if d.Reply != nil {
		s.Reply = *d.Reply
	}
}

// LastUserMessage is the content of the most recent user turn.
func (s State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == entity.ChatRoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

func newResponse(source string, start time.Time) Response {
	now := time.Now()
	return Response{
		Success:          true,
		Timestamp:        now.UTC(),
		ProcessingTimeMs: now.Sub(start).Milliseconds(),
		Confidence:       0.8,
		Source:           source,
	}
}

func failed(resp Response, err error) Response {
	resp.Success = false
	resp.Confidence = 0
	resp.Error = err.Error()
	return resp
}

// generate runs one LLM call under its own deadline. Any failure, timeouts
// included, is an LLMError.
func generate(ctx context.Context, provider llm.LLMProvider, timeout time.Duration, history []llm.Message, opts ...llm.Option) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := provider.Chat(ctx, history, opts...)
	if err != nil {
		return "", apperror.Wrap(apperror.KindLLM, err, "llm call failed")
	}
	return out, nil
}
