package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the tutoring service's Prometheus collectors.
//
// Usage:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	defer m.ObserveStage("REASON", start, err)
type Metrics struct {
	// StageDuration measures each pipeline stage in seconds.
	// Labels: step, outcome (ok|error)
	StageDuration *prometheus.HistogramVec

	// PipelineRuns counts chat turns by how they ended.
	// Labels: outcome (done|fail), step (the failing step, or DONE)
	PipelineRuns *prometheus.CounterVec

	// MemoryRecords counts background memory writes.
	// Labels: status (success|error)
	MemoryRecords *prometheus.CounterVec

	// IngestedContent counts knowledge ingestion attempts.
	// Labels: content_type, status (success|error)
	IngestedContent *prometheus.CounterVec
}

// New registers every collector with reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutor_pipeline_stage_duration_seconds",
				Help:    "Duration of hybrid pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"step", "outcome"},
		),
		PipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_pipeline_runs_total",
				Help: "Total chat turns processed by outcome and final step",
			},
			[]string{"outcome", "step"},
		),
		MemoryRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_memory_records_total",
				Help: "Background memory writes by status",
			},
			[]string{"status"},
		),
		IngestedContent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_ingested_content_total",
				Help: "Knowledge ingestion attempts by content type and status",
			},
			[]string{"content_type", "status"},
		),
	}
}

// ObserveStage is safe on a nil receiver so components can run without metrics.
func (m *Metrics) ObserveStage(step string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(step, outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) PipelineFinished(step string, err error) {
	if m == nil {
		return
	}
	result := "done"
	if err != nil {
		result = "fail"
	}
	m.PipelineRuns.WithLabelValues(result, step).Inc()
}

func (m *Metrics) MemoryRecorded(err error) {
	if m == nil {
		return
	}
	m.MemoryRecords.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) Ingested(contentType string, err error) {
	if m == nil {
		return
	}
	m.IngestedContent.WithLabelValues(contentType, status(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
