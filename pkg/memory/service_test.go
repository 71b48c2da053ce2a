package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	memstore "ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

type wordEmbedder struct{}

func (wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return wordEmbedder{}.EmbedForTask(ctx, text, "")
}

func (wordEmbedder) EmbedForTask(ctx context.Context, text, taskType string) ([]float32, error) {
	vec := make([]float32, testDim)
	vec[0] = 0.1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDim]++
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

func (wordEmbedder) Dimension() int { return testDim }

type brokenIndex struct {
	*vectorindex.Index
	failInsert bool
	failSearch bool
}

func (b brokenIndex) Insert(ctx context.Context, req vectorindex.InsertRequest) (uuid.UUID, error) {
	if b.failInsert {
		return uuid.Nil, apperror.New(apperror.KindVectorStore, "connection refused")
	}
	return b.Index.Insert(ctx, req)
}

func (b brokenIndex) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Result, error) {
	if b.failSearch {
		return nil, apperror.New(apperror.KindVectorStore, "connection refused")
	}
	return b.Index.Search(ctx, req)
}

type brokenProvider struct{}

func (brokenProvider) Add(ctx context.Context, content, userID string, metadata map[string]interface{}) error {
	return errors.New("provider unavailable")
}
func (brokenProvider) Search(ctx context.Context, query, userID string, limit int) ([]ProviderEntry, error) {
	return nil, errors.New("provider unavailable")
}
func (brokenProvider) Delete(ctx context.Context, userID, memoryID string) error {
	return errors.New("provider unavailable")
}
func (brokenProvider) Name() string { return "broken" }

func newIndex() *vectorindex.Index {
	return vectorindex.New(memstore.NewStore().ContentVectors(), testDim, 0, nil)
}

func newBleve(t *testing.T) *BleveProvider {
	t.Helper()
	p, err := NewBleveProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func turns(contents ...string) []entity.ChatTurn {
	out := make([]entity.ChatTurn, 0, len(contents))
	for i, c := range contents {
		role := entity.ChatRoleUser
		if i%2 == 1 {
			role = entity.ChatRoleAssistant
		}
		out = append(out, entity.ChatTurn{Id: fmt.Sprintf("t%d", i), Role: role, Content: c})
	}
	return out
}

func clock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestRecord_WritesBothSidesAndRecallDedupes(t *testing.T) {
	ctx := context.Background()
	svc := NewService(wordEmbedder{}, newIndex(), newBleve(t))

	record, err := svc.Record(ctx, "u1", turns("I love photography", "Great, let's talk cameras"), map[string]interface{}{"topic": "hobby"})
	require.NoError(t, err)
	require.NotEmpty(t, record.MemoryId)

	memories, err := svc.Recall(ctx, "u1", "photography cameras", 5)
	require.NoError(t, err)
	require.Len(t, memories, 1, "the same memory from both stores is merged")
	assert.Equal(t, record.MemoryId, memories[0].MemoryID)
	assert.Equal(t, "vector", memories[0].Source, "vector results win ties")
	require.Len(t, memories[0].Messages, 2)
	assert.Equal(t, "I love photography", memories[0].Messages[0].Content)
	assert.Equal(t, "hobby", memories[0].Metadata["topic"])

	other, err := svc.Recall(ctx, "u2", "photography cameras", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecall_OrderedNewestFirstWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(wordEmbedder{}, newIndex(), newBleve(t))
	svc.now = clock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 8; i++ {
		_, err := svc.Record(ctx, "u1", turns(fmt.Sprintf("photography lesson %d", i)), nil)
		require.NoError(t, err)
	}

	memories, err := svc.Recall(ctx, "u1", "photography lesson", 50)
	require.NoError(t, err)
	require.LessOrEqual(t, len(memories), MaxRecall)
	require.NotEmpty(t, memories)

	seen := map[string]bool{}
	for i, m := range memories {
		assert.False(t, seen[m.MemoryID], "duplicate memory id %s", m.MemoryID)
		seen[m.MemoryID] = true
		if i > 0 {
			assert.False(t, m.CreatedAt.After(memories[i-1].CreatedAt), "not sorted by created_at desc")
		}
	}
}

func TestRecord_OneSideFailing(t *testing.T) {
	ctx := context.Background()

	t.Run("vector side down", func(t *testing.T) {
		svc := NewService(wordEmbedder{}, brokenIndex{Index: newIndex(), failInsert: true}, newBleve(t))
		record, err := svc.Record(ctx, "u1", turns("fractions are hard"), nil)
		require.NoError(t, err)

		memories, err := svc.Recall(ctx, "u1", "fractions", 5)
		require.NoError(t, err)
		require.Len(t, memories, 1)
		assert.Equal(t, record.MemoryId, memories[0].MemoryID)
		assert.Equal(t, "provider", memories[0].Source)
	})

	t.Run("provider down", func(t *testing.T) {
		svc := NewService(wordEmbedder{}, newIndex(), brokenProvider{})
		record, err := svc.Record(ctx, "u1", turns("fractions are hard"), nil)
		require.NoError(t, err)

		memories, err := svc.Recall(ctx, "u1", "fractions", 5)
		require.NoError(t, err)
		require.Len(t, memories, 1)
		assert.Equal(t, record.MemoryId, memories[0].MemoryID)
	})

	t.Run("both down", func(t *testing.T) {
		svc := NewService(wordEmbedder{}, brokenIndex{Index: newIndex(), failInsert: true}, brokenProvider{})
		_, err := svc.Record(ctx, "u1", turns("fractions are hard"), nil)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindMemoryProvider))
	})
}

func TestRecall_VectorStoreDownDegrades(t *testing.T) {
	ctx := context.Background()
	svc := NewService(wordEmbedder{}, brokenIndex{Index: newIndex(), failSearch: true}, brokenProvider{})

	memories, err := svc.Recall(ctx, "u1", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestRecall_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(wordEmbedder{}, newIndex(), newBleve(t))

	_, err := svc.RecallWithEmbedding(ctx, "u1", "x", make([]float32, testDim), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecord_Validation(t *testing.T) {
	svc := NewService(wordEmbedder{}, newIndex(), newBleve(t))

	_, err := svc.Record(context.Background(), "", turns("hi"), nil)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))

	_, err = svc.Record(context.Background(), "u1", nil, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestMerge(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	vector := []Memory{
		{MemoryID: "b", CreatedAt: t0, Source: "vector"},
		{MemoryID: "c", CreatedAt: t0.Add(time.Hour), Source: "vector"},
	}
	provider := []Memory{
		{MemoryID: "c", CreatedAt: t0.Add(time.Hour), Source: "provider"},
		{MemoryID: "a", CreatedAt: t0, Source: "provider"},
		{MemoryID: "", CreatedAt: t0.Add(2 * time.Hour)},
	}

	merged := Merge(10, vector, provider)
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{merged[0].MemoryID, merged[1].MemoryID, merged[2].MemoryID})
	assert.Equal(t, "vector", merged[0].Source)

	assert.Len(t, Merge(2, vector, provider), 2)
}

func TestDelete_RemovesFromBothStores(t *testing.T) {
	ctx := context.Background()
	svc := NewService(wordEmbedder{}, newIndex(), newBleve(t))

	record, err := svc.Record(ctx, "u1", turns("geometry proofs"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", record.MemoryId))

	memories, err := svc.Recall(ctx, "u1", "geometry proofs", 5)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestBleveProvider_ScopesByUser(t *testing.T) {
	ctx := context.Background()
	p := newBleve(t)

	require.NoError(t, p.Add(ctx, "user: trigonometry identities", "u1", map[string]interface{}{MetaMessageID: "m1"}))
	require.NoError(t, p.Add(ctx, "user: trigonometry identities", "u2", map[string]interface{}{MetaMessageID: "m2"}))

	entries, err := p.Search(ctx, "trigonometry", "u1", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].Metadata[MetaMessageID])

	assert.Error(t, p.Add(ctx, "no id", "u1", nil))
}
