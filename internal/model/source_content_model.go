package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SourceContent struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Alias          string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_source_contents_org_alias"`
	Title          string         `gorm:"type:varchar(255)"`
	Body           string         `gorm:"type:text"`
	OrganizationId uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_source_contents_org_alias"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (SourceContent) TableName() string {
	return "source_contents"
}
