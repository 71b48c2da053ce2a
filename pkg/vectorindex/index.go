package vectorindex

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type InsertRequest struct {
	UserID      string
	ContentType entity.ContentType
	ContentID   string
	Embedding   []float32
	Metadata    map[string]interface{}
}

type SearchRequest struct {
	UserID       string
	Embedding    []float32
	Limit        int
	ContentTypes []entity.ContentType
	ExcludeIDs   []uuid.UUID
}

type Result struct {
	VectorID    uuid.UUID
	ContentID   string
	ContentType entity.ContentType
	Metadata    map[string]interface{}
	Score       float64
	CreatedAt   time.Time
}

// Index enforces the dimension and user scoping contract in front of a
// ContentVectorRepository. Every failure is a VectorStoreError.
type Index struct {
	repo      contract.ContentVectorRepository
	dimension int
	timeout   time.Duration
	logger    logger.ILogger
}

func New(repo contract.ContentVectorRepository, dimension int, timeout time.Duration, log logger.ILogger) *Index {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Index{repo: repo, dimension: dimension, timeout: timeout, logger: log}
}

func (i *Index) Dimension() int {
	return i.dimension
}

func (i *Index) checkEmbedding(embedding []float32) error {
	if len(embedding) != i.dimension {
		return apperror.Newf(apperror.KindVectorStore, "embedding has %d components, collection expects %d", len(embedding), i.dimension)
	}
	for _, x := range embedding {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return apperror.New(apperror.KindVectorStore, "embedding contains non-finite values")
		}
	}
	return nil
}

// Insert validates before touching storage so a rejected vector leaves no trace.
func (i *Index) Insert(ctx context.Context, req InsertRequest) (uuid.UUID, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return uuid.Nil, apperror.New(apperror.KindVectorStore, "user_id is required")
	}
	if !req.ContentType.Valid() {
		return uuid.Nil, apperror.Newf(apperror.KindVectorStore, "unknown content type %q", req.ContentType)
	}
	if req.ContentID == "" {
		return uuid.Nil, apperror.New(apperror.KindVectorStore, "content_id is required")
	}
	if err := i.checkEmbedding(req.Embedding); err != nil {
		return uuid.Nil, err
	}
	if _, err := json.Marshal(req.Metadata); err != nil {
		return uuid.Nil, apperror.Wrap(apperror.KindVectorStore, err, "metadata is not JSON-serializable")
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	vector := &entity.ContentVector{
		Id:          uuid.New(),
		UserId:      req.UserID,
		ContentType: req.ContentType,
		ContentId:   req.ContentID,
		Embedding:   req.Embedding,
		Metadata:    req.Metadata,
	}
	if err := i.repo.Create(ctx, vector); err != nil {
		return uuid.Nil, apperror.Wrap(apperror.KindVectorStore,
			goerr.Wrap(err, "insert vector", goerr.V("content_type", req.ContentType), goerr.V("content_id", req.ContentID)),
			"insert failed")
	}
	return vector.Id, nil
}

// Search returns hits ordered by descending cosine similarity.
func (i *Index) Search(ctx context.Context, req SearchRequest) ([]Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperror.New(apperror.KindVectorStore, "user_id is required")
	}
	if err := i.checkEmbedding(req.Embedding); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := i.repo.SearchSimilar(ctx, req.UserID, req.Embedding, entity.VectorFilter{
		ContentTypes: req.ContentTypes,
		ExcludeIds:   req.ExcludeIDs,
		Limit:        limit,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindVectorStore, goerr.Wrap(err, "similarity search"), "search failed")
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		if row.Vector.UserId != req.UserID {
			i.logger.Error("VECTOR_INDEX", "Search returned a row of another user", map[string]interface{}{
				"vector_id": row.Vector.Id.String(),
			})
			continue
		}
		results = append(results, Result{
			VectorID:    row.Vector.Id,
			ContentID:   row.Vector.ContentId,
			ContentType: row.Vector.ContentType,
			Metadata:    row.Vector.Metadata,
			Score:       row.Similarity,
			CreatedAt:   row.Vector.CreatedAt,
		})
	}
	return results, nil
}

// Query is an unranked scan used for graph assembly and existence checks.
func (i *Index) Query(ctx context.Context, userID string, filter entity.VectorFilter) ([]*entity.ContentVector, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.KindVectorStore, "user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := i.repo.FindAll(ctx, userID, filter)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindVectorStore, goerr.Wrap(err, "query vectors"), "query failed")
	}
	return rows, nil
}

func (i *Index) Delete(ctx context.Context, vectorID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := i.repo.Delete(ctx, vectorID); err != nil {
		return apperror.Wrap(apperror.KindVectorStore, goerr.Wrap(err, "delete vector", goerr.V("vector_id", vectorID)), "delete failed")
	}
	return nil
}

func (i *Index) DeleteContent(ctx context.Context, userID string, contentType entity.ContentType, contentID string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := i.repo.DeleteByContentId(ctx, userID, contentType, contentID); err != nil {
		return apperror.Wrap(apperror.KindVectorStore, goerr.Wrap(err, "delete content vectors", goerr.V("content_id", contentID)), "delete failed")
	}
	return nil
}
