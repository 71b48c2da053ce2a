package knowledge

import (
	"context"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/utils"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// VectorIndex is the subset of vectorindex.Index the knowledge package needs.
type VectorIndex interface {
	VectorQuerier
	Insert(ctx context.Context, req vectorindex.InsertRequest) (uuid.UUID, error)
	Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.Result, error)
}

type IngestRequest struct {
	UserID      string
	ContentType entity.ContentType
	Title       string
	Text        string
	FileType    string
	SourceURL   string
	Metadata    map[string]interface{}
}

type IngestResult struct {
	Item      *entity.KnowledgeItem
	VectorID  uuid.UUID
	Links     []*entity.GraphEdge
	Truncated bool
}

type IngestorConfig struct {
	MaxBytes  int
	LinkLimit int
}

// Ingestor embeds user content, stores it and links it to similar items.
type Ingestor struct {
	embedder   embedding.Embedder
	index      VectorIndex
	graph      *GraphStore
	uowFactory unitofwork.RepositoryFactory
	cfg        IngestorConfig
	logger     logger.ILogger
	publisher  events.Publisher
	now        func() time.Time
}

func NewIngestor(
	embedder embedding.Embedder,
	index VectorIndex,
	graph *GraphStore,
	uowFactory unitofwork.RepositoryFactory,
	cfg IngestorConfig,
	log logger.ILogger,
	publisher events.Publisher,
) *Ingestor {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1 << 20
	}
	if cfg.LinkLimit <= 0 {
		cfg.LinkLimit = 3
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Ingestor{
		embedder:   embedder,
		index:      index,
		graph:      graph,
		uowFactory: uowFactory,
		cfg:        cfg,
		logger:     log,
		publisher:  publisher,
		now:        time.Now,
	}
}

func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Truncate cuts s to at most maxBytes without splitting a rune.
func Truncate(s string, maxBytes int) (string, bool) {
	if len(s) <= maxBytes {
		return s, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.UserID == "" {
		return nil, apperror.New(apperror.KindAuth, "user_id is required")
	}
	if req.ContentType == entity.ContentTypeMemory || !req.ContentType.Valid() {
		return nil, apperror.Newf(apperror.KindValidation, "cannot ingest content type %q", req.ContentType)
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperror.New(apperror.KindValidation, "content is empty")
	}
	text, truncated := Truncate(text, in.cfg.MaxBytes)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = firstLine(text, 80)
	}

	uow := in.uowFactory.NewUnitOfWork(ctx)
	items := uow.KnowledgeItemRepository()

	hash := ContentHash(text)
	previous, err := items.FindLatestByHash(ctx, req.UserID, req.ContentType, hash)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "version lookup failed")
	}

	// Embedding first: nothing is stored when it fails
	vec, err := in.embedder.EmbedForTask(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}

	item := &entity.KnowledgeItem{
		UserId:      req.UserID,
		ContentType: req.ContentType,
		Title:       title,
		Content:     text,
		FileType:    req.FileType,
		SourceURL:   req.SourceURL,
		ContentHash: hash,
		Version:     1,
		Metadata:    req.Metadata,
	}
	if previous != nil {
		item.Version = previous.Version + 1
		item.PreviousVersionId = &previous.Id
	}
	if err := items.Create(ctx, item); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "failed to save content record")
	}

	vectorID, err := in.index.Insert(ctx, vectorindex.InsertRequest{
		UserID:      req.UserID,
		ContentType: req.ContentType,
		ContentID:   item.Id.String(),
		Embedding:   vec,
		Metadata:    in.vectorMetadata(item, previous, truncated),
	})
	if err != nil {
		// Compensate: a record without its vector would never be found again
		if delErr := items.Delete(ctx, item.Id); delErr != nil {
			in.logger.Error("INGEST", "Compensating delete failed", map[string]interface{}{
				"item_id": item.Id.String(),
				"error":   delErr.Error(),
			})
		}
		return nil, err
	}

	item.VectorId = &vectorID
	if err := items.Update(ctx, item); err != nil {
		in.logger.Warn("INGEST", "Failed to store vector id on record", map[string]interface{}{
			"item_id": item.Id.String(),
			"error":   err.Error(),
		})
	}

	links := in.link(ctx, req.UserID, item, vectorID, vec)

	if err := in.publisher.Publish(ctx, events.New(events.TypeDocumentIngested, map[string]interface{}{
		"user_id":      req.UserID,
		"content_id":   item.Id.String(),
		"content_type": string(req.ContentType),
		"version":      item.Version,
		"links":        len(links),
	})); err != nil {
		in.logger.Warn("INGEST", "Failed to publish ingest event", map[string]interface{}{"error": err.Error()})
	}

	in.logger.Info("INGEST", "Content ingested", map[string]interface{}{
		"user_id":      req.UserID,
		"content_id":   item.Id.String(),
		"content_type": string(req.ContentType),
		"version":      item.Version,
		"links":        len(links),
		"truncated":    truncated,
	})

	return &IngestResult{Item: item, VectorID: vectorID, Links: links, Truncated: truncated}, nil
}

func (in *Ingestor) vectorMetadata(item *entity.KnowledgeItem, previous *entity.KnowledgeItem, truncated bool) map[string]interface{} {
	meta := map[string]interface{}{
		"title":     item.Title,
		"fileType":  item.FileType,
		"version":   item.Version,
		"createdAt": item.CreatedAt.UTC().Format(time.RFC3339),
		"excerpt":   utils.Excerpt(item.Content, 200),
		"truncated": truncated,
	}
	if item.SourceURL != "" {
		meta["url"] = item.SourceURL
	}
	if previous != nil {
		meta["previousVersion"] = previous.Version
		meta["previousVersionId"] = previous.Id.String()
	}
	for k, v := range item.Metadata {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}
	return meta
}

// link creates similar_to edges to the closest items of the same type. Failures
// are logged; the content stays searchable without links.
func (in *Ingestor) link(ctx context.Context, userID string, item *entity.KnowledgeItem, vectorID uuid.UUID, vec []float32) []*entity.GraphEdge {
	similar, err := in.index.Search(ctx, vectorindex.SearchRequest{
		UserID:       userID,
		Embedding:    vec,
		Limit:        in.cfg.LinkLimit + 1,
		ContentTypes: []entity.ContentType{item.ContentType},
		ExcludeIDs:   []uuid.UUID{vectorID},
	})
	if err != nil {
		in.logger.Warn("INGEST", "Similarity search for linking failed", map[string]interface{}{
			"content_id": item.Id.String(),
			"error":      err.Error(),
		})
		return nil
	}

	contentID := item.Id.String()
	linked := map[string]bool{}
	var edges []*entity.GraphEdge
	for _, hit := range similar {
		if len(edges) == in.cfg.LinkLimit {
			break
		}
		if hit.ContentID == contentID || linked[hit.ContentID] {
			continue
		}
		edge, err := in.graph.CreateEdge(ctx, userID, contentID, hit.ContentID, entity.RelationshipSimilarTo, map[string]interface{}{
			"similarity_score": hit.Score,
			"linked_at":        in.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			in.logger.Warn("INGEST", "Failed to create similarity edge", map[string]interface{}{
				"source": contentID,
				"target": hit.ContentID,
				"error":  err.Error(),
			})
			continue
		}
		linked[hit.ContentID] = true
		edges = append(edges, edge)
	}
	return edges
}

// Delete removes a content record together with its vectors and incident edges.
func (in *Ingestor) Delete(ctx context.Context, userID string, itemID uuid.UUID) error {
	uow := in.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "begin transaction")
	}

	item, err := uow.KnowledgeItemRepository().FindByID(ctx, userID, itemID)
	if err != nil {
		_ = uow.Rollback()
		return apperror.Wrap(apperror.KindPersistence, err, "lookup failed")
	}
	if item == nil {
		_ = uow.Rollback()
		return apperror.Newf(apperror.KindNotFound, "content %s not found", itemID)
	}

	contentID := item.Id.String()
	steps := []func() error{
		func() error {
			return uow.ContentVectorRepository().DeleteByContentId(ctx, userID, item.ContentType, contentID)
		},
		func() error { return uow.GraphEdgeRepository().DeleteTouching(ctx, userID, contentID) },
		func() error { return uow.KnowledgeItemRepository().Delete(ctx, item.Id) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = uow.Rollback()
			return apperror.Wrap(apperror.KindPersistence, err, "delete failed")
		}
	}
	if err := uow.Commit(); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "commit failed")
	}

	if err := in.publisher.Publish(ctx, events.New(events.TypeContentDeleted, map[string]interface{}{
		"user_id":    userID,
		"content_id": contentID,
	})); err != nil {
		in.logger.Warn("INGEST", "Failed to publish delete event", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > max {
		s, _ = Truncate(s, max)
	}
	return s
}
