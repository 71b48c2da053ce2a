package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerProvider trips after consecutive provider failures so a dead backend fails
// fast instead of holding every request for the full LLM timeout.
type BreakerProvider struct {
	next LLMProvider
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerProvider(name string, next LLMProvider) *BreakerProvider {
	return &BreakerProvider{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// Caller cancellation says nothing about provider health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (b *BreakerProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Chat(ctx, history, options...)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *BreakerProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return b.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
}
