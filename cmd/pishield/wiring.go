package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/pishield/pishield/internal/blob"
	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/logging"
	"github.com/pishield/pishield/internal/pipeline"
	"github.com/pishield/pishield/internal/provider"
	"github.com/pishield/pishield/internal/store"
	"github.com/pishield/pishield/pkg/types"
)

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(w, os.Getenv("PISHIELD_LOG_LEVEL"))
}

// newExtractors builds the per-modality extractors from configuration.
func newExtractors(cfg types.PipelineConfig) []extract.Extractor {
	fetcher := blob.NewFetcher(cfg.Blob)
	return []extract.Extractor{
		&extract.ImageExtractor{Blob: fetcher, Vision: provider.NewVision(cfg.Vision)},
		&extract.TextExtractor{Blob: fetcher, Language: provider.NewLanguage(cfg.Language)},
		&extract.VideoExtractor{Video: provider.NewVideoIntelligence(cfg.Video)},
	}
}

// newOrchestrator opens the store and assembles the pipeline. The caller
// owns closing the returned store. retry may be nil.
func newOrchestrator(cfg types.PipelineConfig, retry pipeline.RetryEnqueuer, logger *slog.Logger) (*pipeline.Orchestrator, *store.SQLite, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	orch := pipeline.New(pipeline.Deps{
		Extractors: newExtractors(cfg),
		Store:      st,
		Retry:      retry,
		Logger:     logger,
	})
	return orch, st, nil
}
