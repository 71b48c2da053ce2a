package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ContentVector backs both content_vectors and memory_vectors; the repository picks
// the table from the content type. Column dimension is fixed by the migration.
type ContentVector struct {
	Id          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      string          `gorm:"type:varchar(255);not null;index"`
	ContentType string          `gorm:"type:varchar(32);not null;index"`
	ContentId   string          `gorm:"type:varchar(255);not null;index"`
	Embedding   pgvector.Vector `gorm:"type:vector"`
	Metadata    datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (ContentVector) TableName() string {
	return "content_vectors"
}
