package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationOwnedBy scopes any org-owned table to one organization.
type OrganizationOwnedBy struct {
	OrganizationId uuid.UUID
}

func (s OrganizationOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("organization_id = ?", s.OrganizationId)
}

// BySlug filters contents by slug.
type BySlug struct {
	Slug string
}

func (s BySlug) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("slug = ?", s.Slug)
}

// ByFileName filters files by exact name.
type ByFileName struct {
	Name string
}

func (s ByFileName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name = ?", s.Name)
}

// BySourceAlias filters source contents by alias.
type BySourceAlias struct {
	Alias string
}

func (s BySourceAlias) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("alias = ?", s.Alias)
}

// BySourceContentId filters chunks by their owning source text.
type BySourceContentId struct {
	SourceContentId uuid.UUID
}

func (s BySourceContentId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_content_id = ?", s.SourceContentId)
}

// ByChunkIndex filters chunks by position within a source.
type ByChunkIndex struct {
	ChunkIndex int
}

func (s ByChunkIndex) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunk_index = ?", s.ChunkIndex)
}
