// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blob fetches artifact bytes from the external blob store. The
// store is opaque to the pipeline: anything reachable by URL works.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pishield/pishield/internal/httputil"
	"github.com/pishield/pishield/pkg/types"
)

const defaultMaxBytes = 50 << 20 // 50 MiB, matching the upload limit

// Fetcher downloads artifact blobs with a size cap so an oversized or
// malicious blob cannot exhaust memory.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
}

// NewFetcher builds a Fetcher from the blob configuration.
func NewFetcher(cfg types.BlobConfig) *Fetcher {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		client:     httputil.NewClient(cfg.HTTPConfig),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch retrieves the blob at url. It fails on any non-200 status and when
// the body exceeds the configured size cap.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("blob at %s exceeds %d byte limit", url, f.maxBytes)
	}

	return data, nil
}
