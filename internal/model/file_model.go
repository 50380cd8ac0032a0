package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type File struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string         `gorm:"type:varchar(255);not null;index"`
	MimeType       string         `gorm:"type:varchar(127)"`
	SizeBytes      int64          `gorm:"default:0"`
	StoragePath    string         `gorm:"type:varchar(512)"`
	OrganizationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (File) TableName() string {
	return "files"
}
