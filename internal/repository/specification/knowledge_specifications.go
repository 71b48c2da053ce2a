package specification

import (
	"ai-tutor-be/internal/entity"

	"gorm.io/gorm"
)

type ByContentTypes struct {
	Types []entity.ContentType
}

func (s ByContentTypes) Apply(db *gorm.DB) *gorm.DB {
	types := make([]string, len(s.Types))
	for i, t := range s.Types {
		types[i] = string(t)
	}
	return db.Where("content_type IN ?", types)
}

type ByContentIDs struct {
	IDs []string
}

func (s ByContentIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_id IN ?", s.IDs)
}

type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

type BySourceIDs struct {
	IDs []string
}

func (s BySourceIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_id IN ?", s.IDs)
}

type ByTargetIDs struct {
	IDs []string
}

func (s ByTargetIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("target_id IN ?", s.IDs)
}

type ByRelationshipTypes struct {
	Types []string
}

func (s ByRelationshipTypes) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("relationship_type IN ?", s.Types)
}

// TouchingContent matches edges with the content id on either end.
type TouchingContent struct {
	ContentID string
}

func (s TouchingContent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_id = ? OR target_id = ?", s.ContentID, s.ContentID)
}

// VectorFilterSpecs translates a VectorFilter into specifications.
func VectorFilterSpecs(userID string, f entity.VectorFilter) []Specification {
	specs := []Specification{ByUserID{UserID: userID}}
	if len(f.ContentTypes) > 0 {
		specs = append(specs, ByContentTypes{Types: f.ContentTypes})
	}
	if len(f.ContentIds) > 0 {
		specs = append(specs, ByContentIDs{IDs: f.ContentIds})
	}
	if len(f.ExcludeIds) > 0 {
		specs = append(specs, ExcludeIDs{IDs: f.ExcludeIds})
	}
	return specs
}

func EdgeFilterSpecs(userID string, f entity.EdgeFilter) []Specification {
	specs := []Specification{ByUserID{UserID: userID}}
	if len(f.SourceIds) > 0 {
		specs = append(specs, BySourceIDs{IDs: f.SourceIds})
	}
	if len(f.TargetIds) > 0 {
		specs = append(specs, ByTargetIDs{IDs: f.TargetIds})
	}
	if len(f.Types) > 0 {
		specs = append(specs, ByRelationshipTypes{Types: f.Types})
	}
	return specs
}
