package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	Id                   string                      `gorm:"type:varchar(255);primaryKey"`
	Email                string                      `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name                 string                      `gorm:"type:varchar(255)"`
	LearningStyle        *string                     `gorm:"type:varchar(64)"`
	DifficultyPreference *string                     `gorm:"type:varchar(64)"`
	Interests            datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Age                  *int
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
