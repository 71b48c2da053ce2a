package knowledge

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/embedding"
	"ai-tutor-be/pkg/vectorindex"
)

type SearchHit struct {
	ContentID   string                 `json:"contentId"`
	ContentType string                 `json:"contentType"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type Searcher struct {
	embedder embedding.Embedder
	index    VectorIndex
	logger   logger.ILogger
}

func NewSearcher(embedder embedding.Embedder, index VectorIndex, log logger.ILogger) *Searcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Searcher{embedder: embedder, index: index, logger: log}
}

// Search is a read path: a vector store failure yields no hits rather than an error.
func (s *Searcher) Search(ctx context.Context, userID, query string, types []entity.ContentType, limit int) ([]SearchHit, error) {
	if len(types) == 0 {
		types = entity.KnowledgeContentTypes
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.index.Search(ctx, vectorindex.SearchRequest{
		UserID:       userID,
		Embedding:    vec,
		Limit:        limit,
		ContentTypes: types,
	})
	if err != nil {
		if apperror.IsKind(err, apperror.KindVectorStore) {
			s.logger.Warn("SEARCH", "Vector search failed, returning no hits", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			return []SearchHit{}, nil
		}
		return nil, err
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			ContentID:   r.ContentID,
			ContentType: string(r.ContentType),
			Score:       r.Score,
			Metadata:    r.Metadata,
		})
	}
	return hits, nil
}
