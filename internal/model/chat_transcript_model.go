package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatTranscript struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    string         `gorm:"type:varchar(255);not null;index"`
	RunId     string         `gorm:"type:varchar(64);uniqueIndex"`
	Message   string         `gorm:"type:text;not null"`
	Response  string         `gorm:"type:text;not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (ChatTranscript) TableName() string {
	return "chats"
}
