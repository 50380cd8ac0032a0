package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-drafting-be/internal/bootstrap"
	"ai-drafting-be/internal/config"
	"ai-drafting-be/internal/tracer"
	"ai-drafting-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer("ai-drafting-worker")
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	if container.EventPublisher != nil {
		defer container.EventPublisher.Close()
	}
	defer container.Logger.Sync()

	// 4. Start the Embedding Consumer
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Background: Starting Consumer Service...")
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Panicf("Unable to start consumer: %v", err)
	}

	<-ctx.Done()
	log.Println("Shutdown signal received, stopping worker")
}
