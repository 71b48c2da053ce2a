package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	got []string
	err error
}

func (r *recorder) Publish(ctx context.Context, event Event) error {
	r.got = append(r.got, event.EventType())
	return r.err
}

func TestFanout(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("nats down")}
	fan := Fanout{a, nil, b}

	err := fan.Publish(context.Background(), New(TypeChatCompleted, map[string]interface{}{"user_id": "u1"}))

	assert.ErrorContains(t, err, "nats down")
	assert.Equal(t, []string{TypeChatCompleted}, a.got, "a failing publisher does not stop the others")
	assert.Equal(t, []string{TypeChatCompleted}, b.got)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout{}.Publish(context.Background(), New(TypeEdgeCreated, nil)))
}
