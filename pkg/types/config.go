// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pishield/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429 responses. Zero
	// means requests are never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// VisionConfig holds settings for the image analysis capability.
type VisionConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the vision provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults caps label and face results per request (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LanguageConfig holds settings for the text analysis capability.
type LanguageConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the language provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// VideoConfig holds settings for the video-intelligence capability. Video
// analysis is asynchronous upstream, so the client polls the operation until
// it reaches a terminal state or the wait budget runs out.
type VideoConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the video-intelligence provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PollInterval is the delay between operation status checks (default 5s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxWait is the total polling budget before the extractor reports the
	// analysis as pending (default 2m).
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`
}

// BlobConfig holds settings for fetching artifact bytes from the blob store.
type BlobConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxBytes caps the artifact size fetched into memory (default 50 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// StoreConfig holds settings for the SQLite result store.
type StoreConfig struct {
	// Path is the SQLite database file (default "pishield.db").
	Path string `json:"path" yaml:"path"`

	// DefaultLimit is the history page size when the caller passes none
	// (default 20).
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`
}

// QueueConfig holds Redis settings for the job and persistence-retry queues.
type QueueConfig struct {
	// Address is the Redis server address (default "localhost:6379").
	Address string `json:"address" yaml:"address"`

	// Password is the optional Redis password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// DB selects the Redis database (default 0).
	DB int `json:"db" yaml:"db"`

	// Workers is the number of concurrent job consumers (default 2).
	Workers int `json:"workers" yaml:"workers"`
}

// ServerConfig holds settings for the HTTP API surface.
type ServerConfig struct {
	// Address is the listen address (default ":8080").
	Address string `json:"address" yaml:"address"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Vision   VisionConfig   `json:"vision" yaml:"vision"`
	Language LanguageConfig `json:"language" yaml:"language"`
	Video    VideoConfig    `json:"video" yaml:"video"`
	Blob     BlobConfig     `json:"blob" yaml:"blob"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Queue    QueueConfig    `json:"queue" yaml:"queue"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
