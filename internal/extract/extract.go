// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns artifacts into normalized SignalBundles. Each
// modality has one extractor wrapping an external analyzer capability; the
// heterogeneous provider responses are flattened into the common feature
// mapping the fusion engine consumes.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/pishield/pishield/pkg/types"
)

// Extractor produces a SignalBundle for one artifact. Implementations are
// polymorphic over this interface so the orchestrator treats all modalities
// uniformly.
type Extractor interface {
	Modality() types.Modality
	Extract(ctx context.Context, artifact types.Artifact) (types.SignalBundle, error)
}

// ErrAnalysisPending reports that the upstream video analysis did not reach
// a terminal state within the polling budget. It is a deferred-result
// signal, not a failure; the caller may retry later with the same artifact.
var ErrAnalysisPending = errors.New("analysis pending: upstream operation not finished")

// ExtractionError wraps an outbound dependency failure during extraction.
// Failures are not retried within the pipeline; partial bundles are never
// persisted.
type ExtractionError struct {
	Modality types.Modality
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Modality, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// failed wraps cause as an ExtractionError unless it is the pending signal
// or a context cancellation, which must stay distinguishable.
func failed(m types.Modality, cause error) error {
	if errors.Is(cause, ErrAnalysisPending) || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return &ExtractionError{Modality: m, Cause: cause}
}

// BlobFetcher retrieves raw artifact bytes from the blob store.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// VisionAnnotation is the provider-neutral result of analyzing one image.
type VisionAnnotation struct {
	// Labels are scene/content labels with provider scores.
	Labels []types.Label

	// FaceConfidences holds one detection confidence per detected face.
	FaceConfidences []float64

	// SafeContent is false when the provider flagged adult, violent, or
	// racy content as likely.
	SafeContent bool
}

// VisionCapability analyzes still-image bytes. Any provider returning the
// VisionAnnotation shape is substitutable.
type VisionCapability interface {
	Annotate(ctx context.Context, image []byte) (VisionAnnotation, error)
}

// LanguageAnnotation is the provider-neutral result of analyzing text.
type LanguageAnnotation struct {
	// Sentiment ranges -1 (negative) to 1 (positive).
	Sentiment float64

	// SentimentMagnitude is the provider's strength estimate for Sentiment.
	SentimentMagnitude float64

	// Entities are named entities with salience scores.
	Entities []types.Label
}

// LanguageCapability analyzes raw text.
type LanguageCapability interface {
	Annotate(ctx context.Context, text string) (LanguageAnnotation, error)
}

// VideoAnnotation is the provider-neutral result of analyzing one video.
type VideoAnnotation struct {
	// Labels are segment-level labels with provider scores.
	Labels []types.Label

	// FaceConfidences holds one confidence per tracked face, in track order.
	FaceConfidences []float64

	// ExplicitLikelihood is the provider's explicit-content category
	// (e.g. "VERY_UNLIKELY" … "VERY_LIKELY").
	ExplicitLikelihood string
}

// VideoCapability analyzes a video by URL reference. Because upstream video
// analysis is asynchronous, implementations poll to a terminal state within
// a bounded wait and return ErrAnalysisPending when the budget runs out.
type VideoCapability interface {
	Annotate(ctx context.Context, videoURL string) (VideoAnnotation, error)
}
