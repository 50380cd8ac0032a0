package entity

import (
	"time"

	"github.com/google/uuid"
)

// ContentChunk is one embedded segment of a source text. The row is the
// system of record for chunk text; the remote vector index only holds ids
// and metadata, so retrieval always resolves back to these rows.
type ContentChunk struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceContentId uuid.UUID `gorm:"type:uuid;index"`
	ChunkIndex      int
	Document        string
	StartOffset     int
	EndOffset       int
	EmbeddingValue  []float32
	Metadata        map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
	IsDeleted       bool
}
