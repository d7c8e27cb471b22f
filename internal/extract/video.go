// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"

	"github.com/pishield/pishield/pkg/types"
)

// VideoExtractor submits the artifact URL to the video-intelligence
// capability. The capability polls the asynchronous upstream operation;
// when its wait budget is exhausted the extractor surfaces
// ErrAnalysisPending instead of fabricating a result.
type VideoExtractor struct {
	Video VideoCapability
}

// Modality returns the modality tag this extractor serves.
func (e *VideoExtractor) Modality() types.Modality { return types.ModalityVideo }

// Extract produces the video SignalBundle.
func (e *VideoExtractor) Extract(ctx context.Context, artifact types.Artifact) (types.SignalBundle, error) {
	ann, err := e.Video.Annotate(ctx, artifact.URL)
	if err != nil {
		return types.SignalBundle{}, failed(types.ModalityVideo, fmt.Errorf("video capability: %w", err))
	}

	bundle := types.NewSignalBundle(types.ModalityVideo)
	if len(ann.Labels) > 0 {
		bundle.Features[types.FeatLabels] = types.LabelsFeature(ann.Labels, maxScore(ann.Labels))
	}
	bundle.Features[types.FeatFaceCount] = types.NumberFeature(float64(len(ann.FaceConfidences)), 1.0)
	if len(ann.FaceConfidences) > 0 {
		bundle.Features[types.FeatFaceConfidences] = types.SeriesFeature(ann.FaceConfidences, mean(ann.FaceConfidences))
	}
	if ann.ExplicitLikelihood != "" {
		bundle.Features[types.FeatExplicitLikelihood] = types.TextFeature(ann.ExplicitLikelihood, 1.0)
	}

	return bundle, nil
}
