package mapper

import (
	"time"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/model"

	"gorm.io/gorm"
)

type ContentMapper struct{}

func NewContentMapper() *ContentMapper {
	return &ContentMapper{}
}

func (m *ContentMapper) ToEntity(c *model.Content) *entity.Content {
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

	sections := make([]entity.ContentSection, len(c.Sections))
	for i, s := range c.Sections {
		sections[i] = *m.SectionToEntity(&s)
	}

	return &entity.Content{
		Id:             c.Id,
		Slug:           c.Slug,
		Title:          c.Title,
		Body:           c.Body,
		OrganizationId: c.OrganizationId,
		Sections:       sections,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      c.DeletedAt.Valid,
	}
}

func (m *ContentMapper) ToModel(c *entity.Content) *model.Content {
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

	sections := make([]model.ContentSection, len(c.Sections))
	for i, s := range c.Sections {
		sections[i] = *m.SectionToModel(&s)
	}

	return &model.Content{
		Id:             c.Id,
		Slug:           c.Slug,
		Title:          c.Title,
		Body:           c.Body,
		OrganizationId: c.OrganizationId,
		Sections:       sections,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ContentMapper) SectionToEntity(s *model.ContentSection) *entity.ContentSection {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ContentSection{
		Id:        s.Id,
		ContentId: s.ContentId,
		Key:       s.Key,
		Heading:   s.Heading,
		Position:  s.Position,
		Body:      s.Body,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ContentMapper) SectionToModel(s *entity.ContentSection) *model.ContentSection {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ContentSection{
		Id:        s.Id,
		ContentId: s.ContentId,
		Key:       s.Key,
		Heading:   s.Heading,
		Position:  s.Position,
		Body:      s.Body,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ContentMapper) ToEntities(contents []*model.Content) []*entity.Content {
	entities := make([]*entity.Content, len(contents))
	for i, c := range contents {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
