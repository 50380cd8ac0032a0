package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"ai-drafting-be/internal/dto"
	ragcontext "ai-drafting-be/pkg/rag/context"
)

type IRetrievalService interface {
	SemanticSearch(ctx context.Context, req *dto.SemanticSearchRequest) (*dto.SemanticSearchResponse, error)
}

type retrievalService struct {
	builder  *ragcontext.Builder
	validate *validator.Validate
}

func NewRetrievalService(builder *ragcontext.Builder) IRetrievalService {
	return &retrievalService{
		builder:  builder,
		validate: validator.New(),
	}
}

func (s *retrievalService) SemanticSearch(ctx context.Context, req *dto.SemanticSearchRequest) (*dto.SemanticSearchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	retrieved := s.builder.Build(ctx, req.Query, ragcontext.Scope{
		OrganizationID:   req.OrganizationId,
		SourceContentIDs: req.SourceContentIds,
		TokenBudget:      req.TokenBudget,
	})

	passages := make([]dto.RetrievedPassageDTO, len(retrieved.Passages))
	for i, p := range retrieved.Passages {
		passages[i] = dto.RetrievedPassageDTO{
			ChunkId:         p.ChunkID,
			SourceContentId: p.SourceContentID,
			ChunkIndex:      p.ChunkIndex,
			Text:            p.Text,
			Score:           p.Score,
		}
	}

	return &dto.SemanticSearchResponse{
		Passages:       passages,
		TokenEstimate:  retrieved.TokenEstimate,
		CandidateCount: retrieved.CandidateCount,
	}, nil
}
