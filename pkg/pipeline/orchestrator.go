package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/agent"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/memory"
	"ai-tutor-be/pkg/metrics"
	"ai-tutor-be/pkg/stream"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MemoryStore interface {
	RecallWithEmbedding(ctx context.Context, userID, queryText string, vec []float32, limit int) ([]memory.Memory, error)
	Record(ctx context.Context, userID string, turns []entity.ChatTurn, extra map[string]interface{}) (*entity.MemoryRecord, error)
}

type Config struct {
	RecallLimit   int
	RecordTimeout time.Duration
}

type Stages struct {
	Emotion      agent.Stage
	Reasoner     agent.Stage
	Personalizer agent.Stage
}

// Orchestrator runs the hybrid tutoring state machine for one chat turn at a time.
// It is safe for concurrent use.
type Orchestrator struct {
	embedder embedding.Embedder
	memory   MemoryStore
	stages   Stages
	cfg      Config
	logger   logger.ILogger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	records sync.WaitGroup
	now     func() time.Time
	newID   func() string
}

type Option func(*Orchestrator)

func WithLogger(l logger.ILogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(embedder embedding.Embedder, mem MemoryStore, stages Stages, cfg Config, opts ...Option) *Orchestrator {
	if cfg.RecallLimit <= 0 || cfg.RecallLimit > memory.MaxRecall {
		cfg.RecallLimit = memory.MaxRecall
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 30 * time.Second
	}
	o := &Orchestrator{
		embedder: embedder,
		memory:   mem,
		stages:   stages,
		cfg:      cfg,
		logger:   logger.NewNopLogger(),
		tracer:   otel.Tracer("ai-tutor-be/pipeline"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type stageFunc func(ctx context.Context, st *HybridState) error

type transition struct {
	step     Step
	fallback apperror.Kind
	run      stageFunc
}

// Run drives INIT through DONE. On failure it returns an *apperror.Error carrying
// the step that broke; nothing is written to sink in that case.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink stream.Sink) (*Result, error) {
	st := &HybridState{
		State: agent.State{
			UserID:         req.UserID,
			Messages:       req.Messages,
			Profile:        req.Profile,
			EmotionalState: entity.EmotionalState{Mood: agent.DefaultMood, Confidence: agent.DefaultConfidence},
		},
		CurrentStep: StepInit,
	}
	var frame stream.Frame

	table := []transition{
		{StepInit, apperror.KindValidation, o.validate},
		{StepEmbedLast, apperror.KindEmbedding, o.embedLast},
		{StepRecallMemory, apperror.KindVectorStore, o.recall},
		{StepEmotion, apperror.KindLLM, o.agentStage(o.stages.Emotion)},
		{StepReason, apperror.KindLLM, o.agentStage(o.stages.Reasoner)},
		{StepPersonalize, apperror.KindLLM, o.agentStage(o.stages.Personalizer)},
		{StepRecordMemory, apperror.KindMemoryProvider, o.recordInBackground},
		{StepStream, apperror.KindPersistence, func(ctx context.Context, st *HybridState) error {
			frame = stream.Frame{
				Id:        o.newID(),
				Role:      string(entity.ChatRoleAssistant),
				Content:   st.Reply,
				CreatedAt: o.now().UTC(),
			}
			return stream.EmitReply(ctx, sink, frame)
		}},
	}

	for _, t := range table {
		if err := o.runStep(ctx, st, t); err != nil {
			failedAt := st.CurrentStep
			st.CurrentStep = StepFail
			o.metrics.PipelineFinished(string(failedAt), err)
			o.logger.Error("PIPELINE", "Pipeline failed", map[string]interface{}{
				"user_id": req.UserID,
				"step":    string(failedAt),
				"error":   err.Error(),
			})
			return nil, err
		}
	}

	st.CurrentStep = StepDone
	o.metrics.PipelineFinished(string(StepDone), nil)

	success := true
	for _, r := range st.Responses {
		success = success && r.Success
	}
	return &Result{
		MessageID:      frame.Id,
		Reply:          st.Reply,
		CreatedAt:      frame.CreatedAt,
		EmotionalState: st.EmotionalState,
		ReActSteps:     st.ReActSteps,
		Memories:       st.Recalled,
		Responses:      st.Responses,
		Trace:          st.Trace,
		Success:        success,
	}, nil
}

func (o *Orchestrator) runStep(ctx context.Context, st *HybridState, t transition) error {
	st.CurrentStep = t.step
	start := time.Now()

	// A cancelled request stops before the next stage; writes already issued
	// are left to finish on their own.
	if err := ctx.Err(); err != nil {
		return o.finishStep(st, t, start, err, nil)
	}

	spanCtx, span := o.tracer.Start(ctx, "pipeline."+strings.ToLower(string(t.step)),
		trace.WithAttributes(attribute.String("user_id", st.UserID)))
	err := t.run(spanCtx, st)
	return o.finishStep(st, t, start, err, span)
}

func (o *Orchestrator) finishStep(st *HybridState, t transition, start time.Time, err error, span trace.Span) error {
	o.metrics.ObserveStage(string(t.step), start, err)

	entry := StepTrace{Step: t.step, DurationMs: time.Since(start).Milliseconds(), Success: err == nil}
	if err != nil {
		entry.Error = err.Error()
	}
	st.Trace = append(st.Trace, entry)

	if err == nil {
		if span != nil {
			span.End()
		}
		return nil
	}

	stepErr := apperror.WithStep(err, string(t.step), t.fallback)
	if span != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		span.End()
	}
	return stepErr
}

func (o *Orchestrator) validate(ctx context.Context, st *HybridState) error {
	if st.UserID == "" {
		return apperror.New(apperror.KindAuth, "missing user")
	}
	if len(st.Messages) == 0 {
		return apperror.New(apperror.KindValidation, "messages must not be empty")
	}
	last := st.Messages[len(st.Messages)-1]
	if last.Role != entity.ChatRoleUser {
		return apperror.New(apperror.KindValidation, "last message must come from the user")
	}

	trimmed := make([]entity.ChatTurn, len(st.Messages))
	for i, m := range st.Messages {
		m.Content = strings.TrimSpace(m.Content)
		trimmed[i] = m
	}
	if trimmed[len(trimmed)-1].Content == "" {
		return apperror.New(apperror.KindValidation, "last message must not be empty")
	}
	st.Messages = trimmed
	return nil
}

func (o *Orchestrator) embedLast(ctx context.Context, st *HybridState) error {
	vec, err := o.embedder.Embed(ctx, st.LastUserMessage())
	if err != nil {
		return err
	}
	if len(vec) != o.embedder.Dimension() {
		return apperror.Newf(apperror.KindEmbedding, "embedding has %d components, expected %d", len(vec), o.embedder.Dimension())
	}
	st.Embedding = vec
	return nil
}

// recall is a read: store failures leave the memory list empty.
func (o *Orchestrator) recall(ctx context.Context, st *HybridState) error {
	memories, err := o.memory.RecallWithEmbedding(ctx, st.UserID, st.LastUserMessage(), st.Embedding, o.cfg.RecallLimit)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.logger.Warn("PIPELINE", "Memory recall failed, continuing without memories", map[string]interface{}{
			"user_id": st.UserID,
			"error":   err.Error(),
		})
		memories = nil
	}
	st.Recalled = memories
	st.Memories = make([]string, 0, len(memories))
	for _, m := range memories {
		if c := strings.TrimSpace(m.Content); c != "" {
			st.Memories = append(st.Memories, c)
		}
	}
	return nil
}

func (o *Orchestrator) agentStage(stage agent.Stage) stageFunc {
	return func(ctx context.Context, st *HybridState) error {
		resp, err := stage.Run(ctx, st.State)
		st.Responses = append(st.Responses, resp)
		if err != nil {
			return err
		}
		st.Apply(resp.StateDelta)
		return nil
	}
}

// recordInBackground hands the exchange to the memory service. The write is
// detached from the request so a disconnect cannot cut it short, and its
// failure never fails the turn.
func (o *Orchestrator) recordInBackground(ctx context.Context, st *HybridState) error {
	if strings.TrimSpace(st.Reply) == "" {
		return apperror.New(apperror.KindLLM, "pipeline produced an empty reply")
	}

	turns := append(append([]entity.ChatTurn(nil), st.Messages...), entity.ChatTurn{
		Id:        o.newID(),
		Role:      entity.ChatRoleAssistant,
		Content:   st.Reply,
		CreatedAt: o.now().UTC(),
	})
	meta := map[string]interface{}{
		"emotionalState": map[string]interface{}{
			"mood":       st.EmotionalState.Mood,
			"confidence": st.EmotionalState.Confidence,
		},
	}
	if p := st.Profile; p != nil {
		if p.LearningStyle != nil {
			meta["learningStyle"] = *p.LearningStyle
		}
		if p.DifficultyPreference != nil {
			meta["difficultyPreference"] = *p.DifficultyPreference
		}
		if len(p.Interests) > 0 {
			meta["interests"] = append([]string(nil), p.Interests...)
		}
	}

	userID := st.UserID
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.RecordTimeout)
	o.records.Add(1)
	go func() {
		defer o.records.Done()
		defer cancel()

		_, err := o.memory.Record(recordCtx, userID, turns, meta)
		o.metrics.MemoryRecorded(err)
		if err != nil {
			o.logger.Warn("PIPELINE", "Memory record failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until background memory writes have finished.
func (o *Orchestrator) Wait() {
	o.records.Wait()
}
