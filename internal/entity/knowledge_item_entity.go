package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeItem is the relational record behind an ingested document, note or url.
type KnowledgeItem struct {
	Id                uuid.UUID
	UserId            string
	ContentType       ContentType
	Title             string
	Content           string
	FileType          string
	SourceURL         string
	ContentHash       string
	Version           int
	PreviousVersionId *uuid.UUID
	VectorId          *uuid.UUID
	Metadata          map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
