package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ai-tutor-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReply_SingleTokenThenFrame(t *testing.T) {
	sink := NewBufferedSink()
	frame := Frame{Id: "a1", Role: "assistant", Content: "Hello there", CreatedAt: time.Unix(0, 0).UTC()}

	require.NoError(t, EmitReply(context.Background(), sink, frame))
	assert.Equal(t, []string{"Hello there"}, sink.Tokens())
	got, ok := sink.Terminal()
	require.True(t, ok)
	assert.Equal(t, frame, got)
}

func TestEmit_CancelledWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := NewBufferedSink()

	err := Emit(ctx, sink, []string{"a", "b"}, Frame{Id: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Tokens())
	_, ok := sink.Terminal()
	assert.False(t, ok)
}

func TestBufferedSink_WireFormat(t *testing.T) {
	sink := NewBufferedSink()
	require.NoError(t, Emit(context.Background(), sink, []string{"Photo", "synthesis"}, Frame{Id: "m1", Role: "assistant", Content: "Photosynthesis"}))

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, sink.WriteTo(w))

	body := buf.String()
	idx := strings.LastIndex(strings.TrimRight(body, "\n"), "\n")
	require.Positive(t, idx)
	assert.Equal(t, "Photosynthesis", body[:idx], "concatenated tokens are the reply")

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(body[idx:])), &frame))
	assert.Equal(t, "m1", frame.Id)
	assert.Equal(t, "assistant", frame.Role)
}

func TestNewErrorFrame(t *testing.T) {
	err := apperror.WithStep(apperror.New(apperror.KindEmbedding, "dimension mismatch"), "EMBED_LAST", apperror.KindEmbedding)
	f := NewErrorFrame(err)
	assert.False(t, f.Success)
	assert.Equal(t, "EMBED_LAST", f.Details.Step)
	assert.Equal(t, "EmbeddingError", f.Details.Kind)
}
