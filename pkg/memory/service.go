package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const MaxRecall = 5

type VectorIndex interface {
	Insert(ctx context.Context, req vectorindex.InsertRequest) (uuid.UUID, error)
	Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Result, error)
	DeleteContent(ctx context.Context, userID string, contentType entity.ContentType, contentID string) error
}

// Memory is a recalled record, whichever store it came from.
type Memory struct {
	MemoryID  string                 `json:"memoryId"`
	Content   string                 `json:"content"`
	Messages  []entity.ChatTurn      `json:"messages,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
	Score     float64                `json:"score"`
	Source    string                 `json:"source"`
}

type Service struct {
	embedder  embedding.Embedder
	index     VectorIndex
	provider  Provider
	timeout   time.Duration
	logger    logger.ILogger
	publisher events.Publisher
	now       func() time.Time
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l logger.ILogger) Option {
	return func(s *Service) { s.logger = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(embedder embedding.Embedder, index VectorIndex, provider Provider, opts ...Option) *Service {
	s := &Service{
		embedder:  embedder,
		index:     index,
		provider:  provider,
		timeout:   10 * time.Second,
		logger:    logger.NewNopLogger(),
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record writes the exchange to both stores in parallel. It fails only when
// neither side stored it.
func (s *Service) Record(ctx context.Context, userID string, turns []entity.ChatTurn, extra map[string]interface{}) (*entity.MemoryRecord, error) {
	if userID == "" {
		return nil, apperror.New(apperror.KindAuth, "user_id is required")
	}
	if len(turns) == 0 || strings.TrimSpace(turns[len(turns)-1].Content) == "" {
		return nil, apperror.New(apperror.KindValidation, "nothing to record")
	}

	record := &entity.MemoryRecord{
		MemoryId:  uuid.NewString(),
		UserId:    userID,
		Messages:  turns,
		Metadata:  extra,
		CreatedAt: s.now().UTC(),
	}
	createdAt := record.CreatedAt.Format(time.RFC3339Nano)
	last := turns[len(turns)-1].Content

	var vectorErr, providerErr error
	var g errgroup.Group

	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		vec, err := s.embedder.EmbedForTask(ctx, last, embedding.TaskRetrievalDocument)
		if err != nil {
			vectorErr = err
			return nil
		}
		meta := mergeMeta(extra, map[string]interface{}{
			MetaMemoryID:  record.MemoryId,
			MetaMessages:  encodeTurns(turns),
			MetaCreatedAt: createdAt,
			MetaContent:   last,
		})
		_, vectorErr = s.index.Insert(ctx, vectorindex.InsertRequest{
			UserID:      userID,
			ContentType: entity.ContentTypeMemory,
			ContentID:   record.MemoryId,
			Embedding:   vec,
			Metadata:    meta,
		})
		return nil
	})

	g.Go(func() error {
		if s.provider == nil {
			providerErr = errors.New("no structured memory provider configured")
			return nil
		}
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		meta := mergeMeta(extra, map[string]interface{}{
			MetaMessageID: record.MemoryId,
			MetaCreatedAt: createdAt,
		})
		providerErr = s.provider.Add(ctx, transcriptText(turns), userID, meta)
		return nil
	})

	_ = g.Wait()

	if vectorErr != nil {
		s.logger.Warn("MEMORY", "Vector side of memory record failed", map[string]interface{}{
			"user_id":   userID,
			"memory_id": record.MemoryId,
			"error":     vectorErr.Error(),
		})
	}
	if providerErr != nil {
		s.logger.Warn("MEMORY", "Structured side of memory record failed", map[string]interface{}{
			"user_id":   userID,
			"memory_id": record.MemoryId,
			"error":     providerErr.Error(),
		})
	}
	if vectorErr != nil && providerErr != nil {
		return nil, apperror.Wrap(apperror.KindMemoryProvider, errors.Join(vectorErr, providerErr), "memory was not stored")
	}

	if err := s.publisher.Publish(ctx, events.New(events.TypeMemoryRecorded, map[string]interface{}{
		"user_id":   userID,
		"memory_id": record.MemoryId,
		"partial":   vectorErr != nil || providerErr != nil,
	})); err != nil {
		s.logger.Warn("MEMORY", "Failed to publish memory event", map[string]interface{}{"error": err.Error()})
	}
	return record, nil
}

// Recall embeds queryText and searches both stores.
func (s *Service) Recall(ctx context.Context, userID, queryText string, limit int) ([]Memory, error) {
	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		s.logger.Warn("MEMORY", "Recall embedding failed, using structured side only", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		vec = nil
	}
	return s.RecallWithEmbedding(ctx, userID, queryText, vec, limit)
}

// RecallWithEmbedding is Recall for callers that already hold the query embedding.
// Both sides degrade to empty on failure; the result is newest first with no
// repeated memory id.
func (s *Service) RecallWithEmbedding(ctx context.Context, userID, queryText string, vec []float32, limit int) ([]Memory, error) {
	if userID == "" {
		return nil, apperror.New(apperror.KindAuth, "user_id is required")
	}
	if limit <= 0 || limit > MaxRecall {
		limit = MaxRecall
	}

	var fromVectors, fromProvider []Memory
	g, gctx := errgroup.WithContext(ctx)

	if vec != nil {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			results, err := s.index.Search(ctx, vectorindex.SearchRequest{
				UserID:       userID,
				Embedding:    vec,
				Limit:        limit * 2,
				ContentTypes: []entity.ContentType{entity.ContentTypeMemory},
			})
			if err != nil {
				s.logger.Warn("MEMORY", "Vector recall failed, continuing without it", map[string]interface{}{
					"user_id": userID,
					"error":   err.Error(),
				})
				return nil
			}
			for _, r := range results {
				fromVectors = append(fromVectors, memoryFromVector(r))
			}
			return nil
		})
	}

	if s.provider != nil {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			entries, err := s.provider.Search(ctx, queryText, userID, limit*2)
			if err != nil {
				s.logger.Warn("MEMORY", "Structured recall failed, continuing without it", map[string]interface{}{
					"user_id":  userID,
					"provider": s.provider.Name(),
					"error":    err.Error(),
				})
				return nil
			}
			for _, e := range entries {
				fromProvider = append(fromProvider, memoryFromProvider(e))
			}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Merge(limit, fromVectors, fromProvider), nil
}

// Merge keeps the first occurrence of every memory id across the lists, then
// orders by created_at descending with ties broken by memory id.
func Merge(limit int, lists ...[]Memory) []Memory {
	seen := map[string]bool{}
	merged := []Memory{}
	for _, list := range lists {
		for _, m := range list {
			if m.MemoryID == "" || seen[m.MemoryID] {
				continue
			}
			seen[m.MemoryID] = true
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].MemoryID < merged[j].MemoryID
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Delete is best-effort on both sides; it reports an error only when both fail.
func (s *Service) Delete(ctx context.Context, userID, memoryID string) error {
	if userID == "" || memoryID == "" {
		return apperror.New(apperror.KindValidation, "user_id and memory id are required")
	}

	var errs []error
	if err := s.index.DeleteContent(ctx, userID, entity.ContentTypeMemory, memoryID); err != nil {
		errs = append(errs, err)
	}
	if s.provider != nil {
		if err := s.provider.Delete(ctx, userID, memoryID); err != nil {
			errs = append(errs, err)
		}
	}

	for _, err := range errs {
		s.logger.Warn("MEMORY", "Memory delete partially failed", map[string]interface{}{
			"user_id":   userID,
			"memory_id": memoryID,
			"error":     err.Error(),
		})
	}
	sides := 1
	if s.provider != nil {
		sides = 2
	}
	if len(errs) == sides {
		return apperror.Wrap(apperror.KindMemoryProvider, errors.Join(errs...), "memory delete failed")
	}
	return nil
}

func memoryFromVector(r vectorindex.Result) Memory {
	m := Memory{
		MemoryID:  r.ContentID,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
		Score:     r.Score,
		Source:    "vector",
	}
	if id, ok := r.Metadata[MetaMemoryID].(string); ok && id != "" {
		m.MemoryID = id
	}
	if ts, ok := r.Metadata[MetaCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			m.CreatedAt = t
		}
	}
	m.Messages = decodeTurns(r.Metadata[MetaMessages])
	if c, ok := r.Metadata[MetaContent].(string); ok {
		m.Content = c
	} else {
		m.Content = transcriptText(m.Messages)
	}
	return m
}

func memoryFromProvider(e ProviderEntry) Memory {
	m := Memory{
		MemoryID:  e.Id,
		Content:   e.Content,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
		Score:     e.Score,
		Source:    "provider",
	}
	if id, ok := e.Metadata[MetaMessageID].(string); ok && id != "" {
		m.MemoryID = id
	}
	if ts, ok := e.Metadata[MetaCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			m.CreatedAt = t
		}
	}
	return m
}

func mergeMeta(extra, own map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+len(own))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

// encodeTurns flattens turns into plain JSON values so every vector backend can
// store them.
func encodeTurns(turns []entity.ChatTurn) []interface{} {
	out := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]interface{}{
			"id":         t.Id,
			"role":       string(t.Role),
			"content":    t.Content,
			"created_at": t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func decodeTurns(raw interface{}) []entity.ChatTurn {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var turns []entity.ChatTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil
	}
	return turns
}

func transcriptText(turns []entity.ChatTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}
