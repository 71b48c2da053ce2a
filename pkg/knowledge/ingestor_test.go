package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestDoc(t *testing.T, f *fixture, userID, title, text string) *IngestResult {
	t.Helper()
	res, err := f.ingestor.Ingest(context.Background(), IngestRequest{
		UserID:      userID,
		ContentType: entity.ContentTypeDocument,
		Title:       title,
		Text:        text,
		FileType:    "application/pdf",
	})
	require.NoError(t, err)
	return res
}

func TestIngest_LinksToSimilarDocuments(t *testing.T) {
	f := newFixture()
	ingestDoc(t, f, "u1", "Leaves", "photosynthesis happens in the leaves of plants")
	ingestDoc(t, f, "u1", "Light", "photosynthesis converts light into chemical energy")
	ingestDoc(t, f, "u1", "Chlorophyll", "chlorophyll drives photosynthesis in plants")
	ingestDoc(t, f, "u1", "Cells", "plant cells contain chloroplasts")
	ingestDoc(t, f, "u2", "Other", "photosynthesis notes of someone else")

	res := ingestDoc(t, f, "u1", "Biology", "photosynthesis in plants uses light")

	assert.Equal(t, 1, res.Item.Version)
	require.NotNil(t, res.Item.VectorId)
	assert.Equal(t, res.VectorID, *res.Item.VectorId)

	rows, err := f.index.Query(context.Background(), "u1", entity.VectorFilter{
		ContentTypes: []entity.ContentType{entity.ContentTypeDocument},
		ContentIds:   []string{res.Item.Id.String()},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Biology", rows[0].Metadata["title"])

	require.Len(t, res.Links, 3)
	owned, err := f.index.Query(context.Background(), "u1", entity.VectorFilter{ContentTypes: []entity.ContentType{entity.ContentTypeDocument}})
	require.NoError(t, err)
	ownedIDs := map[string]bool{}
	for _, v := range owned {
		ownedIDs[v.ContentId] = true
	}
	for _, e := range res.Links {
		assert.Equal(t, entity.RelationshipSimilarTo, e.RelationshipType)
		assert.Equal(t, res.Item.Id.String(), e.SourceContentId)
		assert.NotEqual(t, e.SourceContentId, e.TargetContentId)
		assert.True(t, ownedIDs[e.TargetContentId], "target must be one of the user's documents")
		assert.Contains(t, e.Metadata, "similarity_score")
	}
}

func TestIngest_SameTextCreatesNewVersion(t *testing.T) {
	f := newFixture()
	first := ingestDoc(t, f, "u1", "Notes", "the mitochondria is the powerhouse of the cell")
	second := ingestDoc(t, f, "u1", "Notes", "the mitochondria is the powerhouse of the cell")

	assert.Equal(t, 1, first.Item.Version)
	assert.Equal(t, 2, second.Item.Version)
	require.NotNil(t, second.Item.PreviousVersionId)
	assert.Equal(t, first.Item.Id, *second.Item.PreviousVersionId)

	rows, err := f.index.Query(context.Background(), "u1", entity.VectorFilter{ContentIds: []string{second.Item.Id.String()}, ContentTypes: []entity.ContentType{entity.ContentTypeDocument}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Metadata["previousVersion"])
	assert.Equal(t, 2, rows[0].Metadata["version"])
}

func TestIngest_RejectsInvalidInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, IngestRequest{UserID: "u1", ContentType: entity.ContentTypeNote, Text: "   "})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.ingestor.Ingest(ctx, IngestRequest{UserID: "u1", ContentType: entity.ContentTypeMemory, Text: "x"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.ingestor.Ingest(ctx, IngestRequest{ContentType: entity.ContentTypeNote, Text: "x"})
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))

	assert.Zero(t, f.embedder.calls)
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.embedder.err = apperror.New(apperror.KindEmbedding, "provider down")

	_, err := f.ingestor.Ingest(context.Background(), IngestRequest{UserID: "u1", ContentType: entity.ContentTypeNote, Text: "some note"})
	assert.True(t, apperror.IsKind(err, apperror.KindEmbedding))

	item, err := f.store.KnowledgeItems().FindLatestByHash(context.Background(), "u1", entity.ContentTypeNote, ContentHash("some note"))
	require.NoError(t, err)
	assert.Nil(t, item)
}

type failingInsertIndex struct {
	*vectorindex.Index
}

func (failingInsertIndex) Insert(ctx context.Context, req vectorindex.InsertRequest) (uuid.UUID, error) {
	return uuid.Nil, apperror.Wrap(apperror.KindVectorStore, errors.New("connection reset"), "insert failed")
}

func TestIngest_InsertFailureRemovesRecord(t *testing.T) {
	f := newFixture()
	f.ingestor.index = failingInsertIndex{f.index}

	_, err := f.ingestor.Ingest(context.Background(), IngestRequest{UserID: "u1", ContentType: entity.ContentTypeNote, Text: "orphan candidate"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindVectorStore))

	item, err := f.store.KnowledgeItems().FindLatestByHash(context.Background(), "u1", entity.ContentTypeNote, ContentHash("orphan candidate"))
	require.NoError(t, err)
	assert.Nil(t, item, "compensation deletes the relational record")
}

type failingSearchIndex struct {
	*vectorindex.Index
}

func (failingSearchIndex) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Result, error) {
	return nil, apperror.New(apperror.KindVectorStore, "search unavailable")
}

func TestIngest_LinkFailureKeepsContent(t *testing.T) {
	f := newFixture()
	ingestDoc(t, f, "u1", "First", "graph theory basics")
	f.ingestor.index = failingSearchIndex{f.index}

	res := ingestDoc(t, f, "u1", "Second", "graph theory advanced")
	assert.Empty(t, res.Links)

	rows, err := f.index.Query(context.Background(), "u1", entity.VectorFilter{ContentIds: []string{res.Item.Id.String()}, ContentTypes: []entity.ContentType{entity.ContentTypeDocument}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	hits, err := NewSearcher(f.embedder, failingSearchIndex{f.index}, nil).Search(context.Background(), "u1", "graph", nil, 5)
	require.NoError(t, err, "search degrades to empty")
	assert.Empty(t, hits)
}

func TestIngest_TruncatesOnRuneBoundary(t *testing.T) {
	f := newFixture()
	f.ingestor.cfg.MaxBytes = 5

	res, err := f.ingestor.Ingest(context.Background(), IngestRequest{UserID: "u1", ContentType: entity.ContentTypeNote, Text: "ééé"})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, "éé", res.Item.Content)
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("hello", 10)
	assert.Equal(t, "hello", s)
	assert.False(t, cut)

	s, cut = Truncate(strings.Repeat("a", 12), 10)
	assert.Len(t, s, 10)
	assert.True(t, cut)
}

func TestDelete_RemovesVectorsAndEdges(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := ingestDoc(t, f, "u1", "A", "rivers flow to the sea")
	b := ingestDoc(t, f, "u1", "B", "rivers carry sediment to the sea")
	require.NotEmpty(t, b.Links)

	require.NoError(t, f.ingestor.Delete(ctx, "u1", a.Item.Id))

	rows, err := f.index.Query(ctx, "u1", entity.VectorFilter{ContentTypes: entity.KnowledgeContentTypes})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, b.Item.Id.String(), rows[0].ContentId)

	edges, err := f.graph.Edges(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, edges)

	err = f.ingestor.Delete(ctx, "u1", a.Item.Id)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	err = f.ingestor.Delete(ctx, "u2", b.Item.Id)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound), "other users cannot delete")
}

func TestSearch_ReturnsUserContent(t *testing.T) {
	f := newFixture()
	ingestDoc(t, f, "u1", "Volcano", "volcano eruptions and lava")
	ingestDoc(t, f, "u2", "Volcano", "volcano eruptions and lava")

	hits, err := NewSearcher(f.embedder, f.index, nil).Search(context.Background(), "u1", "volcano lava", nil, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Volcano", hits[0].Metadata["title"])
	assert.Equal(t, "document", hits[0].ContentType)
}
