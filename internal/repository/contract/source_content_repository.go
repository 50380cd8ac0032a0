package contract

import (
	"context"

	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SourceContentRepository interface {
	Create(ctx context.Context, source *entity.SourceContent) error
	Update(ctx context.Context, source *entity.SourceContent) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceContent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceContent, error)
	FindByOrganizationId(ctx context.Context, organizationId uuid.UUID) ([]*entity.SourceContent, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
