package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/ae-intake/internal/compliance"
	"github.com/jonathan/ae-intake/internal/config"
	"github.com/jonathan/ae-intake/internal/db"
	"github.com/jonathan/ae-intake/internal/extraction"
	"github.com/jonathan/ae-intake/internal/llm"
	"github.com/jonathan/ae-intake/internal/pipeline"
	"github.com/jonathan/ae-intake/internal/progress"
	"github.com/jonathan/ae-intake/internal/retry"
	"github.com/jonathan/ae-intake/internal/storage"
)

// buildDeps wires the shared collaborators from configuration.
// The returned cleanup closes everything that was opened.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, *db.DB, func(), error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return pipeline.Deps{}, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var store storage.Store
	var closeStore func()
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket)
		if err != nil {
			database.Close()
			return pipeline.Deps{}, nil, nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		store = gcs
		closeStore = func() { _ = gcs.Close() }
	} else {
		local, err := storage.NewLocalStore(cfg.StorageDir)
		if err != nil {
			database.Close()
			return pipeline.Deps{}, nil, nil, fmt.Errorf("failed to create local store: %w", err)
		}
		store = local
		closeStore = func() {}
	}

	var llmClient llm.Client
	if cfg.GeminiAPIKey != "" {
		llmClient, err = llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			closeStore()
			database.Close()
			return pipeline.Deps{}, nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	} else {
		log.Println("GEMINI_API_KEY not set; analysis and narrative stages disabled")
	}

	audit := compliance.NewLogger(database)
	tracker := progress.NewTracker(database, audit, progress.NewSessionCache())

	deps := pipeline.Deps{
		DB:        database,
		Store:     store,
		Extractor: extraction.NewClient(cfg.ExtractionURL, cfg.ExtractionToken),
		LLM:       llmClient,
		Audit:     audit,
		Tracker:   tracker,
		RetryCfg:  retry.DefaultConfig(),
	}

	cleanup := func() {
		if llmClient != nil {
			_ = llmClient.Close()
		}
		closeStore()
		database.Close()
	}
	return deps, database, cleanup, nil
}
