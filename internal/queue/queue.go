// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue holds the Redis-backed job and retry queues. The job queue
// feeds the worker with analysis requests submitted through the API; the
// retry queue holds completed records whose durable write failed.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pishield/pishield/pkg/types"
)

const (
	jobsKey  = "pishield:jobs"
	retryKey = "pishield:retry"

	popTimeout = 5 * time.Second
)

// Job is one queued analysis request. It carries everything Analyze needs
// so the worker never consults the API process.
type Job struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	URL          string    `json:"url"`
	DeclaredType string    `json:"declared_type"`
	FileName     string    `json:"file_name"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Artifact maps the job back to the pipeline's input shape.
func (j Job) Artifact() types.Artifact {
	return types.Artifact{
		ID:           j.ID,
		OwnerID:      j.OwnerID,
		URL:          j.URL,
		DeclaredType: j.DeclaredType,
		FileName:     j.FileName,
		SubmittedAt:  j.SubmittedAt,
	}
}

// JobFromArtifact builds the queue payload for one artifact.
func JobFromArtifact(a types.Artifact) Job {
	return Job{
		ID:           a.ID,
		OwnerID:      a.OwnerID,
		URL:          a.URL,
		DeclaredType: a.DeclaredType,
		FileName:     a.FileName,
		SubmittedAt:  a.SubmittedAt,
	}
}

// Client wraps one Redis connection serving both queues.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis per cfg and verifies the connection.
func NewClient(ctx context.Context, cfg types.QueueConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// EnqueueJob pushes one analysis request onto the job queue.
func (c *Client) EnqueueJob(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	if err := c.rdb.RPush(ctx, jobsKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueuing job %s: %w", job.ID, err)
	}
	return nil
}

// DequeueJob blocks for up to popTimeout waiting for the next job. When the
// queue stays empty it returns (nil, nil) so the worker loop can check its
// context and wait again.
func (c *Client) DequeueJob(ctx context.Context) (*Job, error) {
	res, err := c.rdb.BLPop(ctx, popTimeout, jobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}
	// BLPop returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}

// EnqueueRecord pushes a completed record onto the retry queue after a
// failed durable write. Satisfies the pipeline's retry contract.
func (c *Client) EnqueueRecord(ctx context.Context, record types.AnalysisRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := c.rdb.RPush(ctx, retryKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueuing record %s for retry: %w", record.ID, err)
	}
	return nil
}

// DequeueRecord pops the next record awaiting a durable write, or (nil, nil)
// when the retry queue is empty.
func (c *Client) DequeueRecord(ctx context.Context) (*types.AnalysisRecord, error) {
	res, err := c.rdb.BLPop(ctx, popTimeout, retryKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing record: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
	}

	var record types.AnalysisRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &record, nil
}
