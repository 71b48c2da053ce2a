package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "")
	t.Setenv("MAX_REASONING_STEPS", "")

	cfg := Load()

	assert.Equal(t, 1024, cfg.Vector.Dimension)
	assert.Equal(t, 3, cfg.Pipeline.MaxReasoningSteps)
	assert.Equal(t, 3, cfg.Pipeline.MaxGraphDepth)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.LLMTimeout)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.EmbeddingTimeout)
	assert.Equal(t, 1<<20, cfg.Knowledge.IngestMaxBytes)
	assert.Equal(t, 10<<20, cfg.Knowledge.UploadMaxBytes)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("LLM_TIMEOUT", "2s")
	t.Setenv("MEMORY_RECALL_LIMIT", "50")
	t.Setenv("NATS_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.LLMTimeout)
	assert.Equal(t, 5, cfg.Pipeline.RecallLimit, "recall limit is clamped")
	assert.True(t, cfg.Nats.Enabled)
}

func TestValidate_RejectsUnboundedLoops(t *testing.T) {
	cfg := Load()
	cfg.Pipeline.MaxReasoningSteps = 0
	cfg.Pipeline.MaxGraphDepth = -1
	cfg.Vector.Dimension = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_REASONING_STEPS")
	assert.Contains(t, err.Error(), "MAX_GRAPH_DEPTH")
	assert.Contains(t, err.Error(), "EMBEDDING_DIMENSION")
}
