package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	opts := Resolve(Options{Temperature: 0.7, Model: "base"}, WithModel("override"), WithMaxTokens(64))

	assert.Equal(t, "override", opts.Model)
	assert.Equal(t, 64, opts.MaxTokens)
	assert.Equal(t, 0.7, opts.Temperature)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "b"},
	})

	assert.Equal(t, "a\n\nb", system)
	require.Len(t, rest, 1)
	assert.Equal(t, RoleUser, rest[0].Role)
}

type failingProvider struct{ calls int }

func (f *failingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	f.calls++
	return "", errors.New("backend down")
}

func (f *failingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return f.Chat(ctx, nil, options...)
}

func TestBreakerProvider_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingProvider{}
	p := NewBreakerProvider("test", inner)

	for i := 0; i < 5; i++ {
		_, err := p.Generate(context.Background(), "x")
		require.Error(t, err)
	}

	_, err := p.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.calls)
}

// contextProvider fails the way real clients do when the caller goes away.
type contextProvider struct{ calls int }

func (c *contextProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	c.calls++
	if err := ctx.Err(); err != nil {
		return "", goerr.Wrap(err, "chat completion failed")
	}
	return "ok", nil
}

func (c *contextProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return c.Chat(ctx, nil, options...)
}

func TestBreakerProvider_IgnoresCallerCancellation(t *testing.T) {
	inner := &contextProvider{}
	p := NewBreakerProvider("test", inner)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, err := p.Generate(cancelled, "x")
		require.ErrorIs(t, err, context.Canceled)
	}

	out, err := p.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 11, inner.calls)
}
