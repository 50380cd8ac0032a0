package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Content struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Slug           string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_contents_org_slug"`
	Title          string    `gorm:"type:varchar(255);not null"`
	Body           string    `gorm:"type:text"`
	OrganizationId uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_contents_org_slug"`
	Sections       []ContentSection `gorm:"foreignKey:ContentId"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Content) TableName() string {
	return "contents"
}

type ContentSection struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Key       string    `gorm:"type:varchar(255);not null"`
	Heading   string    `gorm:"type:varchar(255)"`
	Position  int       `gorm:"default:0"`
	Body      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ContentSection) TableName() string {
	return "content_sections"
}
