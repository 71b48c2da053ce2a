package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineFinished(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PipelineFinished("DONE", nil)
	m.PipelineFinished("DONE", nil)
	m.PipelineFinished("EMBED_LAST", errors.New("dimension mismatch"))

	expected := `
		# HELP tutor_pipeline_runs_total Total chat turns processed by outcome and final step
		# TYPE tutor_pipeline_runs_total counter
		tutor_pipeline_runs_total{outcome="done",step="DONE"} 2
		tutor_pipeline_runs_total{outcome="fail",step="EMBED_LAST"} 1
	`
	require.NoError(t, testutil.CollectAndCompare(m.PipelineRuns, strings.NewReader(expected)))
}

func TestObserveStage(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveStage("REASON", time.Now(), nil)
	m.ObserveStage("REASON", time.Now(), errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("INIT", time.Now(), nil)
		m.PipelineFinished("DONE", nil)
		m.MemoryRecorded(nil)
		m.Ingested("note", nil)
	})
}
