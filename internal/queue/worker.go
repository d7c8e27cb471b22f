// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/store"
	"github.com/pishield/pishield/pkg/types"
)

// Analyzer is the piece of the pipeline the worker drives.
type Analyzer interface {
	Analyze(ctx context.Context, artifact types.Artifact) (*types.AnalysisRecord, error)
}

// Broker is the queue surface the worker consumes. Client satisfies it;
// tests substitute an in-memory implementation.
type Broker interface {
	EnqueueJob(ctx context.Context, job Job) error
	DequeueJob(ctx context.Context) (*Job, error)
	EnqueueRecord(ctx context.Context, record types.AnalysisRecord) error
	DequeueRecord(ctx context.Context) (*types.AnalysisRecord, error)
}

var _ Broker = (*Client)(nil)

// Worker consumes the job queue with a fixed number of concurrent
// consumers and drains the retry queue alongside them.
type Worker struct {
	Queue    Broker
	Pipeline Analyzer
	Store    store.Store
	Workers  int
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled, running Workers consumers plus one
// retry drainer. Job failures are logged, never fatal: a bad artifact must
// not take the worker down.
func (w *Worker) Run(ctx context.Context) error {
	workers := w.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error { return w.consumeJobs(ctx, logger) })
	}
	g.Go(func() error { return w.drainRetries(ctx, logger) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consumeJobs(ctx context.Context, logger *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.Queue.DequeueJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("dequeue failed", "error", err)
			continue
		}
		if job == nil {
			continue
		}

		w.runJob(ctx, logger, *job)
	}
}

func (w *Worker) runJob(ctx context.Context, logger *slog.Logger, job Job) {
	record, err := w.Pipeline.Analyze(ctx, job.Artifact())
	switch {
	case err == nil:
		logger.Info("job complete", "job_id", job.ID, "analysis_id", record.ID)
	case errors.Is(err, extract.ErrAnalysisPending):
		// Upstream has not finished; push the job back for a later attempt.
		logger.Info("job deferred, upstream analysis pending", "job_id", job.ID)
		if qErr := w.Queue.EnqueueJob(ctx, job); qErr != nil {
			logger.Error("re-enqueue failed", "job_id", job.ID, "error", qErr)
		}
	default:
		logger.Error("job failed", "job_id", job.ID, "error", err)
	}
}

// drainRetries replays records whose first durable write failed. A record
// that fails again goes back on the queue.
func (w *Worker) drainRetries(ctx context.Context, logger *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := w.Queue.DequeueRecord(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("retry dequeue failed", "error", err)
			continue
		}
		if record == nil {
			continue
		}

		if _, err := w.Store.Save(ctx, record.OwnerID, *record); err != nil {
			logger.Error("retry write failed", "analysis_id", record.ID, "error", err)
			if qErr := w.Queue.EnqueueRecord(ctx, *record); qErr != nil {
				logger.Error("retry re-enqueue failed", "analysis_id", record.ID, "error", qErr)
			}
			continue
		}
		logger.Info("retried write succeeded", "analysis_id", record.ID)
	}
}
