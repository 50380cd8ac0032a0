package dto

import (
	"github.com/google/uuid"
)

type SemanticSearchRequest struct {
	OrganizationId   uuid.UUID   `json:"organization_id" validate:"required"`
	Query            string      `json:"query" validate:"required"`
	SourceContentIds []uuid.UUID `json:"source_content_ids"`
	TokenBudget      int         `json:"token_budget" validate:"omitempty,min=1,max=8000"`
}

type RetrievedPassageDTO struct {
	ChunkId         uuid.UUID `json:"chunk_id"`
	SourceContentId uuid.UUID `json:"source_content_id"`
	ChunkIndex      int       `json:"chunk_index"`
	Text            string    `json:"text"`
	Score           float64   `json:"score"`
}

type SemanticSearchResponse struct {
	Passages       []RetrievedPassageDTO `json:"passages"`
	TokenEstimate  int                   `json:"token_estimate"`
	CandidateCount int                   `json:"candidate_count"`
}
