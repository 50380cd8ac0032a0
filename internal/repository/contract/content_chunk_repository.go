package contract

import (
	"context"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredContentChunk wraps ContentChunk with its similarity score
type ScoredContentChunk struct {
	Chunk      *entity.ContentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ContentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.ContentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteBySourceContentId hard-deletes every chunk of a source; it runs
	// inside the replacement transaction so a re-ingest never leaves a mix of
	// old and new rows.
	DeleteBySourceContentId(ctx context.Context, sourceContentId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContentChunk, error)
	FindBySourceAndIndex(ctx context.Context, sourceContentId uuid.UUID, chunkIndex int) (*entity.ContentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns chunks with their similarity scores,
	// org-scoped, filtered by threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, organizationId uuid.UUID, threshold float64) ([]*ScoredContentChunk, error)
}
