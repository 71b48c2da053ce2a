package service

import (
	"context"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	memstore "ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/pkg/extract"
	"ai-tutor-be/pkg/knowledge"
	"ai-tutor-be/pkg/metrics"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return hashEmbedder{}.EmbedForTask(ctx, text, "")
}

func (hashEmbedder) EmbedForTask(ctx context.Context, text, taskType string) ([]float32, error) {
	vec := make([]float32, testDim)
	vec[0] = 0.01
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDim]++
	}
	return vec, nil
}

func (hashEmbedder) Dimension() int { return testDim }

type knowledgeFixture struct {
	store   *memstore.Store
	metrics *metrics.Metrics
	svc     IKnowledgeService
}

func newKnowledgeFixture() *knowledgeFixture {
	store := memstore.NewStore()
	index := vectorindex.New(store.ContentVectors(), testDim, 0, nil)
	graph := knowledge.NewGraphStore(store.GraphEdges(), index, 3, nil, nil)
	ingestor := knowledge.NewIngestor(hashEmbedder{}, index, graph, memstore.NewRepositoryFactory(store), knowledge.IngestorConfig{}, nil, nil)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewKnowledgeService(ingestor, knowledge.NewSearcher(hashEmbedder{}, index, nil), graph,
		extract.New(extract.Config{}, nil), m, logger.NewNopLogger(), 1024)
	return &knowledgeFixture{store: store, metrics: m, svc: svc}
}

func TestKnowledgeService_UploadAndSearch(t *testing.T) {
	f := newKnowledgeFixture()
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "u1", "cells/mitochondria.txt", "text/plain", []byte("mitochondria produce energy for the cell"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "mitochondria", res.Document.Title)
	assert.Equal(t, "text/plain", res.Document.FileType)
	assert.Equal(t, 1, res.Document.Version)

	again, err := f.svc.Upload(ctx, "u1", "mitochondria.txt", "text/plain", []byte("mitochondria produce energy for the cell"))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Document.Version)

	hits, err := f.svc.Search(ctx, "u1", &dto.KnowledgeSearchRequest{Query: "cell energy", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, string(entity.ContentTypeDocument), hits[0].ContentType)

	hits, err = f.svc.Search(ctx, "u2", &dto.KnowledgeSearchRequest{Query: "cell energy"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.IngestedContent.WithLabelValues("document", "success")))
}

func TestKnowledgeService_UploadRejections(t *testing.T) {
	f := newKnowledgeFixture()
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "u1", "big.txt", "text/plain", []byte(strings.Repeat("a", 2048)))
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.svc.Upload(ctx, "u1", "photo.png", "image/png", []byte{1, 2, 3})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestKnowledgeService_NotesURLsGraphDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><head><title>Cell biology</title></head><body><p>the cell membrane protects the cell</p></body></html>")
	}))
	defer srv.Close()

	f := newKnowledgeFixture()
	ctx := context.Background()

	note, err := f.svc.CreateNote(ctx, "u1", &dto.CreateNoteRequest{Title: "Membranes", Content: "the cell membrane is a lipid bilayer"})
	require.NoError(t, err)

	page, err := f.svc.IngestURL(ctx, "u1", &dto.IngestURLRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Cell biology", page.Document.Title)
	assert.Zero(t, page.Links, "similarity links stay within one content type")

	noteID, pageID := note.Document.Id.String(), page.Document.Id.String()
	require.NoError(t, f.svc.CreateEdge(ctx, "u1", &dto.CreateEdgeRequest{SourceId: noteID, TargetId: pageID, Type: "references"}))

	graph, err := f.svc.Graph(ctx, "u1", noteID)
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Relationships, 1)
	assert.Equal(t, "references", graph.Relationships[0].Type)

	err = f.svc.CreateEdge(ctx, "u2", &dto.CreateEdgeRequest{SourceId: noteID, TargetId: pageID, Type: "related"})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound), "other users cannot link foreign content")

	require.NoError(t, f.svc.Delete(ctx, "u1", pageID))
	graph, err = f.svc.Graph(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Relationships)

	assert.True(t, apperror.IsKind(f.svc.Delete(ctx, "u1", "not-a-uuid"), apperror.KindValidation))
	assert.True(t, apperror.IsKind(f.svc.Delete(ctx, "u1", pageID), apperror.KindNotFound))
}
