package unitofwork

import (
	"context"

	"ai-drafting-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ContentRepository() contract.ContentRepository
	FileRepository() contract.FileRepository
	SourceContentRepository() contract.SourceContentRepository
	ContentChunkRepository() contract.ContentChunkRepository
}
