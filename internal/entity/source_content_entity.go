package entity

import (
	"time"

	"github.com/google/uuid"
)

// SourceContent is an ingested reference text. Its alias is what users write
// in @references; its body is what the pipeline chunks and embeds.
type SourceContent struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Alias          string
	Title          string
	Body           string
	OrganizationId uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
