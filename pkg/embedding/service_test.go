package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"ai-tutor-be/internal/pkg/apperror"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	values any
	err    error
	calls  atomic.Int32
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, text, taskType string) (*RawEmbedding, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &RawEmbedding{Values: p.values}, nil
}

func staticFactory(p EmbeddingProvider) ProviderFactory {
	return func(ctx context.Context) (EmbeddingProvider, error) { return p, nil }
}

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestService_EmbedNormalizes(t *testing.T) {
	svc := NewService(staticFactory(&stubProvider{values: []float64{3, 4, 0, 0}}), 4)

	vec, err := svc.Embed(context.Background(), "  hello  ")
	require.NoError(t, err)
	require.Len(t, vec, 4)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
}

func TestService_MeanPoolsTokenMatrix(t *testing.T) {
	matrix := [][]float32{{1, 0, 0}, {0, 1, 0}}
	svc := NewService(staticFactory(&stubProvider{values: matrix}), 3)

	vec, err := svc.Embed(context.Background(), "two tokens")
	require.NoError(t, err)
	assert.InDelta(t, vec[0], vec[1], 1e-6)
	assert.InDelta(t, 0, vec[2], 1e-6)
}

func TestService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		text     string
	}{
		{"empty input", &stubProvider{values: []float32{1}}, "   "},
		{"dimension mismatch", &stubProvider{values: make([]float32, 512)}, "hi"},
		{"provider error", &stubProvider{err: errors.New("503")}, "hi"},
		{"unsupported type", &stubProvider{values: "nope"}, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(staticFactory(tt.provider), 1024)
			_, err := svc.Embed(context.Background(), tt.text)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindEmbedding))
		})
	}
}

func TestService_InitFailureIsRetried(t *testing.T) {
	var attempts atomic.Int32
	provider := &stubProvider{values: []float32{1, 0}}
	factory := func(ctx context.Context) (EmbeddingProvider, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("model not loaded")
		}
		return provider, nil
	}
	svc := NewService(factory, 2)

	_, err := svc.Embed(context.Background(), "first")
	require.Error(t, err)

	_, err = svc.Embed(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestService_ConcurrentFirstCallersShareInit(t *testing.T) {
	var inits atomic.Int32
	provider := &stubProvider{values: []float32{0, 1}}
	factory := func(ctx context.Context) (EmbeddingProvider, error) {
		inits.Add(1)
		return provider, nil
	}
	svc := NewService(factory, 2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), "concurrent")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inits.Load())
}

func TestService_CacheHitSkipsProvider(t *testing.T) {
	provider := &stubProvider{values: []float32{1, 1}}
	cache := NewTieredCache(gocache.New(gocache.NoExpiration, 0), nil, 0)
	svc := NewService(staticFactory(provider), 2, WithCache(cache))

	first, err := svc.Embed(context.Background(), "cached")
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "cached")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestService_RejectsDirectionlessVectors(t *testing.T) {
	tests := []struct {
		name   string
		values any
	}{
		{"all zero", []float32{0, 0, 0}},
		{"nan", []float64{1, math.NaN(), 0}},
		{"inf", []float64{math.Inf(1), 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(staticFactory(&stubProvider{values: tt.values}), 3)
			vec, err := svc.Embed(context.Background(), "hi")
			require.Error(t, err)
			assert.Nil(t, vec)
			assert.True(t, apperror.IsKind(err, apperror.KindEmbedding))
		})
	}
}

func TestTieredCache_HitsDoNotShareBackingArray(t *testing.T) {
	cache := NewTieredCache(gocache.New(gocache.NoExpiration, 0), nil, 0)
	ctx := context.Background()
	cache.Set(ctx, "k", []float32{0.6, 0.8})

	first, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	first[0] = 42

	second, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float32{0.6, 0.8}, second)
}
