package entity

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string
	MimeType       string
	SizeBytes      int64
	StoragePath    string
	OrganizationId uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
