package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/pkg/vectorindex"
)

const testDim = 16

// bagOfWordsEmbedder hashes words into buckets so texts sharing words score higher.
type bagOfWordsEmbedder struct {
	calls int
	err   error
}

func (e *bagOfWordsEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedForTask(ctx, text, "")
}

func (e *bagOfWordsEmbedder) EmbedForTask(ctx context.Context, text, taskType string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, testDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDim]++
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		vec[0] = 1
		return vec, nil
	}
	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

func (e *bagOfWordsEmbedder) Dimension() int { return testDim }

type fixture struct {
	store    *memory.Store
	index    *vectorindex.Index
	graph    *GraphStore
	embedder *bagOfWordsEmbedder
	ingestor *Ingestor
}

func newFixture() *fixture {
	store := memory.NewStore()
	index := vectorindex.New(store.ContentVectors(), testDim, 0, nil)
	graph := NewGraphStore(store.GraphEdges(), index, 3, nil, nil)
	embedder := &bagOfWordsEmbedder{}
	ingestor := NewIngestor(embedder, index, graph, memory.NewRepositoryFactory(store), IngestorConfig{}, nil, nil)
	return &fixture{store: store, index: index, graph: graph, embedder: embedder, ingestor: ingestor}
}
