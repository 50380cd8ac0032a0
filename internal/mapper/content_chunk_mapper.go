package mapper

import (
	"encoding/json"
	"time"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContentChunkMapper struct{}

func NewContentChunkMapper() *ContentChunkMapper {
	return &ContentChunkMapper{}
}

func (m *ContentChunkMapper) ToEntity(c *model.ContentChunk) *entity.ContentChunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(c.Metadata) > 0 {
		// Best effort; a corrupt snapshot just yields nil metadata.
		_ = json.Unmarshal(c.Metadata, &metadata)
	}

	return &entity.ContentChunk{
		Id:              c.Id,
		SourceContentId: c.SourceContentId,
		ChunkIndex:      c.ChunkIndex,
		Document:        c.Document,
		StartOffset:     c.StartOffset,
		EndOffset:       c.EndOffset,
		EmbeddingValue:  c.EmbeddingValue.Slice(),
		Metadata:        metadata,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
		IsDeleted:       c.DeletedAt.Valid,
	}
}

func (m *ContentChunkMapper) ToModel(c *entity.ContentChunk) *model.ContentChunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	var metadata datatypes.JSON
	if c.Metadata != nil {
		if raw, err := json.Marshal(c.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.ContentChunk{
		Id:              c.Id,
		SourceContentId: c.SourceContentId,
		ChunkIndex:      c.ChunkIndex,
		Document:        c.Document,
		StartOffset:     c.StartOffset,
		EndOffset:       c.EndOffset,
		EmbeddingValue:  pgvector.NewVector(c.EmbeddingValue),
		Metadata:        metadata,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       updatedAt,
		DeletedAt:       deletedAt,
	}
}

func (m *ContentChunkMapper) ToEntities(chunks []*model.ContentChunk) []*entity.ContentChunk {
	entities := make([]*entity.ContentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ContentChunkMapper) ToModels(chunks []*entity.ContentChunk) []*model.ContentChunk {
	models := make([]*model.ContentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
