package dto

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeDocument struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	FileType  string    `json:"fileType"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

type IngestResponse struct {
	Success   bool              `json:"success"`
	Document  KnowledgeDocument `json:"document"`
	Links     int               `json:"links"`
	Truncated bool              `json:"truncated"`
	Message   string            `json:"message"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" validate:"required"`
}

type IngestURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type KnowledgeSearchRequest struct {
	Query string   `query:"q" validate:"required"`
	Types []string `query:"types" validate:"dive,oneof=document note url"`
	Limit int      `query:"limit" validate:"gte=0,lte=50"`
}

type KnowledgeSearchResult struct {
	ContentId   string                 `json:"contentId"`
	ContentType string                 `json:"contentType"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type CreateEdgeRequest struct {
	SourceId string                 `json:"sourceId" validate:"required"`
	TargetId string                 `json:"targetId" validate:"required"`
	Type     string                 `json:"type" validate:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}
