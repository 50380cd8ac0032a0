package entity

import (
	"time"

	"github.com/google/uuid"
)

type Content struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slug           string
	Title          string
	Body           string
	OrganizationId uuid.UUID `gorm:"type:uuid;index"`
	Sections       []ContentSection
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// ContentSection is an addressable part of a document, referenced with
// @slug:key or @slug#key.
type ContentSection struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContentId uuid.UUID `gorm:"type:uuid;index"`
	Key       string
	Heading   string
	Position  int
	Body      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
