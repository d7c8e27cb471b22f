// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences classify → extract → fuse → store for one
// artifact. It is the sole entry point external collaborators call. Each
// invocation operates on its own artifact and shares no mutable state with
// concurrent invocations, so many pipelines may run at once without
// locking.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pishield/pishield/internal/classify"
	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/fuse"
	"github.com/pishield/pishield/internal/store"
	"github.com/pishield/pishield/pkg/types"
)

// PersistenceError reports that the verdict was computed but could not be
// stored durably. The caller still receives the record; an external job
// retries the write from the retry queue.
type PersistenceError struct {
	RecordID string
	Cause    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting analysis %s failed: %v", e.RecordID, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// RetryEnqueuer accepts records whose durable write failed, for replay by
// an external job.
type RetryEnqueuer interface {
	EnqueueRecord(ctx context.Context, record types.AnalysisRecord) error
}

// Deps wires the driven components into the orchestrator. Retry is
// optional; everything else is required.
type Deps struct {
	Extractors []extract.Extractor
	Store      store.Store
	Retry      RetryEnqueuer
	Logger     *slog.Logger
}

// Orchestrator runs the analysis pipeline.
type Orchestrator struct {
	extractors map[types.Modality]extract.Extractor
	store      store.Store
	retry      RetryEnqueuer
	logger     *slog.Logger
}

// New constructs the orchestrator, indexing extractors by modality.
func New(deps Deps) *Orchestrator {
	extractors := make(map[types.Modality]extract.Extractor, len(deps.Extractors))
	for _, e := range deps.Extractors {
		extractors[e.Modality()] = e
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		extractors: extractors,
		store:      deps.Store,
		retry:      deps.Retry,
		logger:     logger,
	}
}

// Analyze runs the full pipeline for one artifact. It fails fast: a
// classifier rejection or extraction failure aborts before fusion and
// storage, so no partial record is ever written. On a store failure the
// completed record is returned together with a *PersistenceError so the
// caller does not lose a verdict it already paid to compute.
func (o *Orchestrator) Analyze(ctx context.Context, artifact types.Artifact) (*types.AnalysisRecord, error) {
	modality, err := classify.Classify(artifact.DeclaredType)
	if err != nil {
		return nil, err
	}

	extractor, ok := o.extractors[modality]
	if !ok {
		return nil, fmt.Errorf("no extractor configured for modality %s", modality)
	}

	bundle, err := extractor.Extract(ctx, artifact)
	if err != nil {
		return nil, err
	}

	// A caller disconnect during extraction must not produce an orphaned record.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := fuse.Fuse(modality, bundle)

	record := types.AnalysisRecord{
		ID:        artifact.ID,
		OwnerID:   artifact.OwnerID,
		FileName:  artifact.FileName,
		FileURL:   artifact.URL,
		Modality:  modality,
		Bundle:    bundle,
		Verdict:   verdict,
		CreatedAt: time.Now().UTC(),
	}

	id, err := o.store.Save(ctx, artifact.OwnerID, record)
	if err != nil {
		perr := &PersistenceError{RecordID: record.ID, Cause: err}
		o.logger.Error("analysis persistence failed, verdict returned to caller",
			"analysis_id", record.ID, "owner_id", artifact.OwnerID, "error", err)
		if o.retry != nil {
			if qErr := o.retry.EnqueueRecord(ctx, record); qErr != nil {
				o.logger.Error("retry enqueue failed", "analysis_id", record.ID, "error", qErr)
			}
		}
		return &record, perr
	}
	record.ID = id

	o.logger.Info("analysis complete",
		"analysis_id", record.ID,
		"owner_id", artifact.OwnerID,
		"modality", modality,
		"probability", verdict.AIGeneratedProbability,
		"flagged", verdict.IsFlagged)

	return &record, nil
}
