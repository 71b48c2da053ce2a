package stream

import (
	"context"
	"time"

	"ai-tutor-be/internal/pkg/apperror"
)

// Frame closes every successful chat stream.
type Frame struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorFrame replaces the stream when the pipeline fails.
type ErrorFrame struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Details ErrorDetails `json:"details"`
}

type ErrorDetails struct {
	Step    string `json:"step,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Sink is a transport the reply is written to: a chunked HTTP body or a websocket.
type Sink interface {
	WriteToken(token string) error
	WriteTerminal(frame Frame) error
}

// Emit writes tokens in order and then the terminal frame. Nothing is written once
// ctx is done, so a cancelled request never sees a terminal frame.
func Emit(ctx context.Context, sink Sink, tokens []string, frame Frame) error {
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tok == "" {
			continue
		}
		if err := sink.WriteToken(tok); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sink.WriteTerminal(frame)
}

// EmitReply streams a reply produced atomically: one token, then the frame.
func EmitReply(ctx context.Context, sink Sink, frame Frame) error {
	return Emit(ctx, sink, []string{frame.Content}, frame)
}

func NewErrorFrame(err error) ErrorFrame {
	f := ErrorFrame{
		Success: false,
		Error:   "Failed to process chat",
		Details: ErrorDetails{Message: err.Error()},
	}
	if kind, ok := apperror.KindOf(err); ok {
		f.Details.Kind = string(kind)
	}
	f.Details.Step = apperror.StepOf(err)
	return f
}
