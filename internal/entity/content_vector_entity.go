package entity

import (
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentTypeDocument ContentType = "document"
	ContentTypeNote     ContentType = "note"
	ContentTypeURL      ContentType = "url"
	ContentTypeMemory   ContentType = "memory"
)

const (
	CollectionContentVectors = "content_vectors"
	CollectionMemoryVectors  = "memory_vectors"
	CollectionKnowledgeGraph = "knowledge_graph"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeDocument, ContentTypeNote, ContentTypeURL, ContentTypeMemory:
		return true
	}
	return false
}

// Collection is the physical table the vector lives in.
func (t ContentType) Collection() string {
	if t == ContentTypeMemory {
		return CollectionMemoryVectors
	}
	return CollectionContentVectors
}

// KnowledgeContentTypes are the types an ingestor produces.
var KnowledgeContentTypes = []ContentType{ContentTypeDocument, ContentTypeNote, ContentTypeURL}

type ContentVector struct {
	Id          uuid.UUID
	UserId      string
	ContentType ContentType
	ContentId   string
	Embedding   []float32
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

type ScoredContentVector struct {
	Vector     *ContentVector
	Similarity float64
}

// VectorFilter is the non-ranked predicate of a vector query. Empty fields match all.
type VectorFilter struct {
	ContentTypes []ContentType
	ContentIds   []string
	ExcludeIds   []uuid.UUID
	Limit        int
}

func (f VectorFilter) Matches(v *ContentVector) bool {
	if len(f.ContentTypes) > 0 && !containsType(f.ContentTypes, v.ContentType) {
		return false
	}
	if len(f.ContentIds) > 0 && !containsString(f.ContentIds, v.ContentId) {
		return false
	}
	for _, id := range f.ExcludeIds {
		if id == v.Id {
			return false
		}
	}
	return true
}

func containsType(list []ContentType, t ContentType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
