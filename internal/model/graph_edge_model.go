package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GraphEdge struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           string         `gorm:"type:varchar(255);not null;index"`
	SourceContentId  string         `gorm:"column:source_id;type:varchar(255);not null;index"`
	TargetContentId  string         `gorm:"column:target_id;type:varchar(255);not null;index"`
	RelationshipType string         `gorm:"type:varchar(64);not null;index"`
	Metadata         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
}

func (GraphEdge) TableName() string {
	return "knowledge_graph"
}
