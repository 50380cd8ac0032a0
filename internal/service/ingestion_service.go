package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ai-drafting-be/internal/dto"
	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/specification"
	"ai-drafting-be/internal/repository/unitofwork"
	"ai-drafting-be/pkg/events"
	pktNats "ai-drafting-be/pkg/nats"
)

type IIngestionService interface {
	// Ingest stores or replaces a source text by (organization, alias) and
	// queues it for chunking and embedding.
	Ingest(ctx context.Context, req *dto.IngestSourceRequest) (*dto.IngestSourceResponse, error)
	Show(ctx context.Context, organizationId uuid.UUID, id uuid.UUID) (*dto.ShowSourceResponse, error)
	Delete(ctx context.Context, organizationId uuid.UUID, id uuid.UUID) error
}

type ingestionService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	validate         *validator.Validate
	log              logger.ILogger
}

func NewIngestionService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		validate:         validator.New(),
		log:              log,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, req *dto.IngestSourceRequest) (*dto.IngestSourceResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.SourceContentRepository().FindOne(ctx,
		specification.OrganizationOwnedBy{OrganizationId: req.OrganizationId},
		specification.BySourceAlias{Alias: req.Alias},
	)
	if err != nil {
		return nil, err
	}

	replaced := existing != nil
	var source *entity.SourceContent
	if replaced {
		existing.Title = req.Title
		existing.Body = req.Body
		if err := uow.SourceContentRepository().Update(ctx, existing); err != nil {
			return nil, err
		}
		source = existing
	} else {
		source = &entity.SourceContent{
			Id:             uuid.New(),
			Alias:          req.Alias,
			Title:          req.Title,
			Body:           req.Body,
			OrganizationId: req.OrganizationId,
			CreatedAt:      time.Now(),
		}
		if err := uow.SourceContentRepository().Create(ctx, source); err != nil {
			return nil, err
		}
	}

	msgPayload := dto.PublishEmbedSourceMessage{
		SourceContentId: source.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	// Auxiliary event; failure never fails the request.
	if s.eventPublisher != nil {
		evt := events.NewSourceIngested(source.Id, req.OrganizationId, source.Alias, replaced)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("ingestion", "failed to publish SOURCE_INGESTED event", map[string]interface{}{
				"source_content_id": source.Id,
				"error":             err.Error(),
			})
		}
	}

	s.log.Info("ingestion", "source queued for embedding", map[string]interface{}{
		"source_content_id": source.Id,
		"alias":             source.Alias,
		"replaced":          replaced,
	})

	return &dto.IngestSourceResponse{
		Id:       source.Id,
		Alias:    source.Alias,
		Replaced: replaced,
	}, nil
}

func (s *ingestionService) Show(ctx context.Context, organizationId uuid.UUID, id uuid.UUID) (*dto.ShowSourceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	source, err := uow.SourceContentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.OrganizationOwnedBy{OrganizationId: organizationId},
	)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("source content %s not found", id)
	}

	chunkCount, err := uow.ContentChunkRepository().Count(ctx,
		specification.BySourceContentId{SourceContentId: source.Id},
	)
	if err != nil {
		return nil, err
	}

	return &dto.ShowSourceResponse{
		Id:         source.Id,
		Alias:      source.Alias,
		Title:      source.Title,
		Body:       source.Body,
		ChunkCount: chunkCount,
		CreatedAt:  source.CreatedAt,
		UpdatedAt:  source.UpdatedAt,
	}, nil
}

func (s *ingestionService) Delete(ctx context.Context, organizationId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	source, err := uow.SourceContentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.OrganizationOwnedBy{OrganizationId: organizationId},
	)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("source content %s not found", id)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ContentChunkRepository().DeleteBySourceContentId(ctx, source.Id); err != nil {
		return err
	}
	if err := uow.SourceContentRepository().Delete(ctx, source.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	// Remote vectors are left behind; retrieval drops matches whose chunk
	// rows are gone, so they are harmless until the index is rebuilt.
	s.log.Info("ingestion", "source deleted", map[string]interface{}{
		"source_content_id": source.Id,
		"alias":             source.Alias,
	})
	return nil
}
