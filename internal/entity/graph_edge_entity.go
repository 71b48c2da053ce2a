package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RelationshipSimilarTo  = "similar_to"
	RelationshipRelated    = "related"
	RelationshipReferences = "references"
)

type GraphEdge struct {
	Id               uuid.UUID
	UserId           string
	SourceContentId  string
	TargetContentId  string
	RelationshipType string
	Metadata         map[string]interface{}
	CreatedAt        time.Time
}

type EdgeFilter struct {
	SourceIds []string
	TargetIds []string
	Types     []string
}

func (f EdgeFilter) Matches(e *GraphEdge) bool {
	if len(f.SourceIds) > 0 && !containsString(f.SourceIds, e.SourceContentId) {
		return false
	}
	if len(f.TargetIds) > 0 && !containsString(f.TargetIds, e.TargetContentId) {
		return false
	}
	if len(f.Types) > 0 && !containsString(f.Types, e.RelationshipType) {
		return false
	}
	return true
}

// GraphNode is a content item as seen by the graph view.
type GraphNode struct {
	Id       string
	Type     ContentType
	Label    string
	Metadata map[string]interface{}
}
