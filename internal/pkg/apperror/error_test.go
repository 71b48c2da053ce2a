package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithStep(t *testing.T) {
	base := errors.New("connection refused")

	t.Run("wraps foreign errors with the fallback kind", func(t *testing.T) {
		err := WithStep(base, "EMBED_LAST", KindEmbedding)
		assert.True(t, IsKind(err, KindEmbedding))
		assert.Equal(t, "EMBED_LAST", StepOf(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("keeps the kind of typed errors", func(t *testing.T) {
		err := WithStep(Wrap(KindLLM, base, "chat failed"), "REASON", KindParse)
		assert.True(t, IsKind(err, KindLLM))
		assert.Equal(t, "REASON", StepOf(err))
	})

	t.Run("does not overwrite an existing step", func(t *testing.T) {
		inner := WithStep(base, "EMOTION", KindLLM)
		err := WithStep(fmt.Errorf("outer: %w", inner), "REASON", KindLLM)
		assert.Equal(t, "EMOTION", StepOf(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, WithStep(nil, "INIT", KindValidation))
	})
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindVectorStore, Step: "RECALL_MEMORY", Message: "search failed", Err: errors.New("timeout")}
	assert.Equal(t, "VectorStoreError at RECALL_MEMORY: search failed: timeout", err.Error())
}
