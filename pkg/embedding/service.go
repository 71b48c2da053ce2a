package embedding

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
)

// ProviderFactory builds the backing provider. It runs on first use, not at startup.
type ProviderFactory func(ctx context.Context) (EmbeddingProvider, error)

// Embedder is what the rest of the system depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedForTask(ctx context.Context, text, taskType string) ([]float32, error)
	Dimension() int
}

// Service turns text into unit vectors of exactly Dimension() components.
// The provider is created lazily and shared; concurrent first callers wait on one
// initialisation, and a failed initialisation is retried by the next call.
type Service struct {
	factory   ProviderFactory
	dimension int
	timeout   time.Duration
	cache     Cache
	logger    logger.ILogger

	mu       sync.Mutex
	provider EmbeddingProvider
}

type ServiceOption func(*Service)

func WithCache(c Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l logger.ILogger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func NewService(factory ProviderFactory, dimension int, opts ...ServiceOption) *Service {
	s := &Service{
		factory:   factory,
		dimension: dimension,
		timeout:   5 * time.Second,
		logger:    logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Dimension() int {
	return s.dimension
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.EmbedForTask(ctx, text, TaskRetrievalQuery)
}

func (s *Service) EmbedForTask(ctx context.Context, text, taskType string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.New(apperror.KindEmbedding, "input text is empty")
	}

	provider, err := s.getProvider(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEmbedding, err, "embedding provider unavailable")
	}

	key := CacheKey(provider.Name(), taskType, text)
	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, key); ok && len(vec) == s.dimension {
			return vec, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := provider.Generate(callCtx, text, taskType)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEmbedding, err, "provider call failed")
	}

	vec, err := ToFloat32(raw.Values)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEmbedding, err, "cannot convert provider output")
	}
	if len(vec) != s.dimension {
		return nil, apperror.Newf(apperror.KindEmbedding, "dimension mismatch: got %d, want %d", len(vec), s.dimension)
	}
	vec, err = normalizeVector(vec)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEmbedding, err, "invalid provider output")
	}

	s.logger.Debug("EMBEDDING", "Generated embedding", map[string]interface{}{
		"provider":    provider.Name(),
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if s.cache != nil {
		s.cache.Set(ctx, key, vec)
	}
	return vec, nil
}

func (s *Service) getProvider(ctx context.Context) (EmbeddingProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider != nil {
		return s.provider, nil
	}

	p, err := s.factory(ctx)
	if err != nil {
		s.logger.Warn("EMBEDDING", "Provider initialisation failed, will retry on next call", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	s.provider = p
	return p, nil
}
