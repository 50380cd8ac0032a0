package bootstrap

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"

	"ai-drafting-be/internal/config"
	"ai-drafting-be/internal/pkg/logger"
	"ai-drafting-be/internal/repository/implementation"
	"ai-drafting-be/internal/repository/unitofwork"
	"ai-drafting-be/internal/service"
	"ai-drafting-be/pkg/chunker"
	"ai-drafting-be/pkg/embedding"
	pktNats "ai-drafting-be/pkg/nats"
	ragcontext "ai-drafting-be/pkg/rag/context"
	"ai-drafting-be/pkg/vectorindex"
)

type Container struct {
	Logger logger.ILogger

	// Services
	IngestionService service.IIngestionService
	RetrievalService service.IRetrievalService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Closers
	EventPublisher *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS is auxiliary; the pipeline runs without it.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("bootstrap", "failed to connect NATS publisher, events disabled", map[string]interface{}{
			"error": err.Error(),
		})
		natsPub = nil
	}

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewHTTPProvider(
			cfg.Ai.EmbeddingBaseURL,
			cfg.Ai.EmbeddingAPIKey,
			cfg.Ai.EmbeddingTimeout,
		)
		log.Printf("[INFO] Using Embedding Provider: HTTP (%s)", cfg.Ai.EmbeddingBaseURL)
	}

	indexClient := vectorindex.NewClient(vectorindex.Config{
		BaseURL:  cfg.VectorIndex.BaseURL,
		APIToken: cfg.VectorIndex.APIToken,
		Timeout:  cfg.VectorIndex.Timeout,
	}, sysLogger)
	if !indexClient.Configured() {
		sysLogger.Warn("bootstrap", "vector index not configured, using local pgvector search", nil)
	}

	// 4. Retrieval
	chunkRepo := implementation.NewContentChunkRepository(db)
	builder := ragcontext.NewBuilder(embeddingProvider, indexClient, chunkRepo, sysLogger)

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, cfg.App.IngestTopic)
	ingestionService := service.NewIngestionService(uowFactory, publisherService, natsPub, sysLogger)
	retrievalService := service.NewRetrievalService(builder)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.IngestTopic,
		uowFactory,
		embeddingProvider,
		indexClient,
		natsPub,
		chunker.Options{
			ChunkSizeTokens: cfg.Ai.ChunkSizeTokens,
			OverlapTokens:   cfg.Ai.OverlapTokens,
		},
		sysLogger,
	)

	return &Container{
		Logger:           sysLogger,
		IngestionService: ingestionService,
		RetrievalService: retrievalService,
		ConsumerService:  consumerService,
		EventPublisher:   natsPub,
	}
}
