package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-drafting-be/internal/dto"
	"ai-drafting-be/internal/entity"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/specification"
	"ai-drafting-be/internal/repository/unitofwork"
	"ai-drafting-be/pkg/chunker"
	"ai-drafting-be/pkg/embedding"
	"ai-drafting-be/pkg/events"
	pktNats "ai-drafting-be/pkg/nats"
	"ai-drafting-be/pkg/vectorindex"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	vectorIndex       *vectorindex.Client
	eventPublisher    *pktNats.Publisher
	chunkOptions      chunker.Options
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	vectorIndex *vectorindex.Client,
	eventPublisher *pktNats.Publisher,
	chunkOptions chunker.Options,
	log logger.ILogger,
) IConsumerService {
	if chunkOptions.ChunkSizeTokens == 0 {
		chunkOptions = chunker.DefaultOptions()
	}
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		vectorIndex:       vectorIndex,
		eventPublisher:    eventPublisher,
		chunkOptions:      chunkOptions,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedSourceMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed messages never become valid, do not retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	source, err := uow.SourceContentRepository().FindOne(ctx, specification.ByID{ID: payload.SourceContentId})
	if err != nil {
		cs.log.Error("consumer", "failed to load source content", map[string]interface{}{
			"source_content_id": payload.SourceContentId,
			"error":             err.Error(),
		})
		msg.Nack()
		return
	}
	if source == nil {
		// Deleted between publish and consume.
		msg.Ack()
		return
	}

	chunks, err := chunker.Split(source.Body, cs.chunkOptions)
	if err != nil {
		cs.log.Error("consumer", "source body is not chunkable", map[string]interface{}{
			"source_content_id": source.Id,
			"error":             err.Error(),
		})
		msg.Ack() // a validation error will not fix itself on retry
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := cs.embeddingProvider.EmbedTexts(ctx, texts)
	if err != nil {
		cs.log.Error("consumer", "embedding generation failed", map[string]interface{}{
			"source_content_id": source.Id,
			"chunks":            len(chunks),
			"error":             err.Error(),
		})
		msg.Nack()
		return
	}

	newChunks := make([]*entity.ContentChunk, len(chunks))
	for i, c := range chunks {
		newChunks[i] = &entity.ContentChunk{
			Id:              uuid.New(),
			SourceContentId: source.Id,
			ChunkIndex:      c.Index,
			Document:        c.Text,
			StartOffset:     c.StartOffset,
			EndOffset:       c.EndOffset,
			EmbeddingValue:  vectors[i],
			Metadata: map[string]interface{}{
				"alias": source.Alias,
				"title": source.Title,
			},
			CreatedAt: time.Now(),
		}
	}

	// Replace all chunk rows atomically: readers see either the old set or
	// the new set, never a mix.
	if err := uow.Begin(ctx); err != nil {
		cs.log.Error("consumer", "failed to begin transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.ContentChunkRepository().DeleteBySourceContentId(ctx, source.Id); err != nil {
		cs.log.Error("consumer", "failed to delete old chunks", map[string]interface{}{
			"source_content_id": source.Id,
			"error":             err.Error(),
		})
		msg.Nack()
		return
	}
	if err := uow.ContentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
		cs.log.Error("consumer", "failed to insert new chunks", map[string]interface{}{
			"source_content_id": source.Id,
			"error":             err.Error(),
		})
		msg.Nack()
		return
	}
	if err := uow.Commit(); err != nil {
		cs.log.Error("consumer", "failed to commit chunk replacement", map[string]interface{}{
			"source_content_id": source.Id,
			"error":             err.Error(),
		})
		msg.Nack()
		return
	}

	// The remote upsert happens after commit and outside the transaction. A
	// failure leaves the rows authoritative and the index stale, which the
	// retrieval side tolerates; the next re-ingest heals it.
	cs.upsertRemote(ctx, source, newChunks)

	if cs.eventPublisher != nil {
		evt := events.NewSourceChunksReplaced(source.Id, source.OrganizationId, len(newChunks))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.log.Warn("consumer", "failed to publish SOURCE_CHUNKS_REPLACED event", map[string]interface{}{
				"source_content_id": source.Id,
				"error":             err.Error(),
			})
		}
	}

	cs.log.Info("consumer", "source processed", map[string]interface{}{
		"source_content_id": source.Id,
		"chunks":            len(newChunks),
	})
	msg.Ack()
}

func (cs *consumerService) upsertRemote(ctx context.Context, source *entity.SourceContent, chunks []*entity.ContentChunk) {
	if cs.vectorIndex == nil || !cs.vectorIndex.Configured() {
		return
	}

	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ID:     vectorindex.RecordID(source.Id.String(), c.ChunkIndex),
			Values: c.EmbeddingValue,
			Metadata: vectorindex.Metadata{
				OrganizationID:  source.OrganizationId.String(),
				SourceContentID: source.Id.String(),
				ChunkIndex:      c.ChunkIndex,
			},
		}
	}

	if err := cs.vectorIndex.UpsertVectors(ctx, records); err != nil {
		cs.log.Warn("consumer", "remote vector upsert failed, index is stale for this source", map[string]interface{}{
			"source_content_id": source.Id,
			"error":             err.Error(),
		})
	}
}
