package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAuth           Kind = "AuthError"
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFoundError"
	KindEmbedding      Kind = "EmbeddingError"
	KindVectorStore    Kind = "VectorStoreError"
	KindMemoryProvider Kind = "MemoryProviderError"
	KindLLM            Kind = "LLMError"
	KindParse          Kind = "ParseError"
	KindPersistence    Kind = "PersistenceError"
)

// Error is the single error type crossing package boundaries. Step is the pipeline
// or request step at which it was raised, empty when not applicable.
type Error struct {
	Kind    Kind
	Step    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Step != "" {
		msg += " at " + e.Step
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStep returns err tagged with step. An *Error already carrying a step keeps it;
// foreign errors are wrapped with fallback.
func WithStep(err error, step string, fallback Kind) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Step != "" {
			return appErr
		}
		return &Error{Kind: appErr.Kind, Step: step, Message: appErr.Message, Err: appErr.Err}
	}
	return &Error{Kind: fallback, Step: step, Err: err}
}

func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func StepOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Step
	}
	return ""
}
