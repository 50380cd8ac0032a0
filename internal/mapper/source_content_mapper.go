package mapper

import (
	"time"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/model"

	"gorm.io/gorm"
)

type SourceContentMapper struct{}

func NewSourceContentMapper() *SourceContentMapper {
	return &SourceContentMapper{}
}

func (m *SourceContentMapper) ToEntity(s *model.SourceContent) *entity.SourceContent {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.SourceContent{
		Id:             s.Id,
		Alias:          s.Alias,
		Title:          s.Title,
		Body:           s.Body,
		OrganizationId: s.OrganizationId,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      s.DeletedAt.Valid,
	}
}

func (m *SourceContentMapper) ToModel(s *entity.SourceContent) *model.SourceContent {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.SourceContent{
		Id:             s.Id,
		Alias:          s.Alias,
		Title:          s.Title,
		Body:           s.Body,
		OrganizationId: s.OrganizationId,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *SourceContentMapper) ToEntities(sources []*model.SourceContent) []*entity.SourceContent {
	entities := make([]*entity.SourceContent, len(sources))
	for i, s := range sources {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
