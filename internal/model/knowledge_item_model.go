package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KnowledgeItem struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId            string         `gorm:"type:varchar(255);not null;index"`
	ContentType       string         `gorm:"type:varchar(32);not null;index"`
	Title             string         `gorm:"type:varchar(500);not null"`
	Content           string         `gorm:"type:text"`
	FileType          string         `gorm:"type:varchar(255)"`
	SourceURL         string         `gorm:"type:text"`
	ContentHash       string         `gorm:"type:varchar(128);index"`
	Version           int            `gorm:"not null;default:1"`
	PreviousVersionId *uuid.UUID     `gorm:"type:uuid"`
	VectorId          *uuid.UUID     `gorm:"type:uuid"`
	Metadata          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (KnowledgeItem) TableName() string {
	return "knowledge_items"
}
