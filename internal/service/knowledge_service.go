package service

import (
	"context"
	"path/filepath"
	"strings"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/extract"
	"ai-tutor-be/pkg/knowledge"
	"ai-tutor-be/pkg/metrics"

	"github.com/google/uuid"
)

type IKnowledgeService interface {
	Upload(ctx context.Context, userID, filename, mimeType string, data []byte) (*dto.IngestResponse, error)
	CreateNote(ctx context.Context, userID string, req *dto.CreateNoteRequest) (*dto.IngestResponse, error)
	IngestURL(ctx context.Context, userID string, req *dto.IngestURLRequest) (*dto.IngestResponse, error)
	Search(ctx context.Context, userID string, req *dto.KnowledgeSearchRequest) ([]dto.KnowledgeSearchResult, error)
	Graph(ctx context.Context, userID, seed string) (*knowledge.GraphPayload, error)
	CreateEdge(ctx context.Context, userID string, req *dto.CreateEdgeRequest) error
	Delete(ctx context.Context, userID, contentID string) error
}

type knowledgeService struct {
	ingestor       *knowledge.Ingestor
	searcher       *knowledge.Searcher
	graph          *knowledge.GraphStore
	graphQuery     *knowledge.GraphQuery
	extractor      *extract.Extractor
	metrics        *metrics.Metrics
	logger         logger.ILogger
	uploadMaxBytes int
}

func NewKnowledgeService(
	ingestor *knowledge.Ingestor,
	searcher *knowledge.Searcher,
	graph *knowledge.GraphStore,
	extractor *extract.Extractor,
	m *metrics.Metrics,
	log logger.ILogger,
	uploadMaxBytes int,
) IKnowledgeService {
	return &knowledgeService{
		ingestor:       ingestor,
		searcher:       searcher,
		graph:          graph,
		graphQuery:     knowledge.NewGraphQuery(graph),
		extractor:      extractor,
		metrics:        m,
		logger:         log,
		uploadMaxBytes: uploadMaxBytes,
	}
}

func (s *knowledgeService) Upload(ctx context.Context, userID, filename, mimeType string, data []byte) (*dto.IngestResponse, error) {
	if s.uploadMaxBytes > 0 && len(data) > s.uploadMaxBytes {
		return nil, apperror.Newf(apperror.KindValidation, "file exceeds %d bytes", s.uploadMaxBytes)
	}

	text, err := s.extractor.FromUpload(ctx, filename, mimeType, data)
	if err != nil {
		s.metrics.Ingested(string(entity.ContentTypeDocument), err)
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return s.ingest(ctx, knowledge.IngestRequest{
		UserID:      userID,
		ContentType: entity.ContentTypeDocument,
		Title:       title,
		Text:        text,
		FileType:    extract.MediaType(mimeType),
		Metadata:    map[string]interface{}{"filename": filename, "size": len(data)},
	}, "Document uploaded")
}

func (s *knowledgeService) CreateNote(ctx context.Context, userID string, req *dto.CreateNoteRequest) (*dto.IngestResponse, error) {
	return s.ingest(ctx, knowledge.IngestRequest{
		UserID:      userID,
		ContentType: entity.ContentTypeNote,
		Title:       req.Title,
		Text:        req.Content,
		FileType:    "text/plain",
	}, "Note saved")
}

func (s *knowledgeService) IngestURL(ctx context.Context, userID string, req *dto.IngestURLRequest) (*dto.IngestResponse, error) {
	page, err := s.extractor.FromURL(ctx, req.URL)
	if err != nil {
		s.metrics.Ingested(string(entity.ContentTypeURL), err)
		return nil, err
	}
	return s.ingest(ctx, knowledge.IngestRequest{
		UserID:      userID,
		ContentType: entity.ContentTypeURL,
		Title:       page.Title,
		Text:        page.Text,
		FileType:    "text/html",
		SourceURL:   page.URL,
	}, "URL ingested")
}

func (s *knowledgeService) ingest(ctx context.Context, req knowledge.IngestRequest, message string) (*dto.IngestResponse, error) {
	res, err := s.ingestor.Ingest(ctx, req)
	s.metrics.Ingested(string(req.ContentType), err)
	if err != nil {
		return nil, err
	}

	item := res.Item
	if res.Truncated {
		message += " (content truncated)"
	}
	return &dto.IngestResponse{
		Success: true,
		Document: dto.KnowledgeDocument{
			Id:        item.Id,
			Title:     item.Title,
			FileType:  item.FileType,
			Version:   item.Version,
			CreatedAt: item.CreatedAt,
		},
		Links:     len(res.Links),
		Truncated: res.Truncated,
		Message:   message,
	}, nil
}

func (s *knowledgeService) Search(ctx context.Context, userID string, req *dto.KnowledgeSearchRequest) ([]dto.KnowledgeSearchResult, error) {
	types := make([]entity.ContentType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, entity.ContentType(t))
	}
	hits, err := s.searcher.Search(ctx, userID, req.Query, types, req.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]dto.KnowledgeSearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, dto.KnowledgeSearchResult{
			ContentId:   h.ContentID,
			ContentType: string(h.ContentType),
			Score:       h.Score,
			Metadata:    h.Metadata,
		})
	}
	return results, nil
}

func (s *knowledgeService) Graph(ctx context.Context, userID, seed string) (*knowledge.GraphPayload, error) {
	return s.graphQuery.Build(ctx, userID, strings.TrimSpace(seed))
}

func (s *knowledgeService) CreateEdge(ctx context.Context, userID string, req *dto.CreateEdgeRequest) error {
	_, err := s.graph.CreateEdge(ctx, userID, req.SourceId, req.TargetId, req.Type, req.Metadata)
	return err
}

func (s *knowledgeService) Delete(ctx context.Context, userID, contentID string) error {
	id, err := uuid.Parse(contentID)
	if err != nil {
		return apperror.Newf(apperror.KindValidation, "invalid content id %q", contentID)
	}
	return s.ingestor.Delete(ctx, userID, id)
}
