package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContentChunk struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceContentId uuid.UUID       `gorm:"type:uuid;not null;index:idx_content_chunks_source_idx"`
	ChunkIndex      int             `gorm:"default:0;index:idx_content_chunks_source_idx"` // 0-based index for ordering
	Document        string          `gorm:"type:text"`
	StartOffset     int             `gorm:"default:0"`
	EndOffset       int             `gorm:"default:0"`
	EmbeddingValue  pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 dimension
	Metadata        datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
}

func (ContentChunk) TableName() string {
	return "content_chunks"
}
