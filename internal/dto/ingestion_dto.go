package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestSourceRequest struct {
	OrganizationId uuid.UUID `json:"organization_id" validate:"required"`
	Alias          string    `json:"alias" validate:"required,max=255"`
	Title          string    `json:"title" validate:"max=255"`
	Body           string    `json:"body" validate:"required"`
}

type IngestSourceResponse struct {
	Id       uuid.UUID `json:"id"`
	Alias    string    `json:"alias"`
	Replaced bool      `json:"replaced"` // true when an existing alias was re-ingested
}

type ShowSourceResponse struct {
	Id         uuid.UUID  `json:"id"`
	Alias      string     `json:"alias"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	ChunkCount int64      `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// PublishEmbedSourceMessage is the payload of the EMBED_SOURCE_CONTENT topic.
type PublishEmbedSourceMessage struct {
	SourceContentId uuid.UUID `json:"source_content_id"`
}
