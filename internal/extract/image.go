// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/bep/imagemeta"
	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"github.com/pishield/pishield/pkg/types"
)

// ImageExtractor fetches artifact bytes, submits them to the vision
// capability, and adds locally computed features (dimensions, perceptual
// hash, embedded credit metadata).
type ImageExtractor struct {
	Blob   BlobFetcher
	Vision VisionCapability
}

// Modality returns the modality tag this extractor serves.
func (e *ImageExtractor) Modality() types.Modality { return types.ModalityImage }

// Extract produces the image SignalBundle. Zero faces or zero labels is a
// valid observation, not an error; only transport and provider failures
// abort the run.
func (e *ImageExtractor) Extract(ctx context.Context, artifact types.Artifact) (types.SignalBundle, error) {
	data, err := e.Blob.Fetch(ctx, artifact.URL)
	if err != nil {
		return types.SignalBundle{}, failed(types.ModalityImage, fmt.Errorf("fetching artifact: %w", err))
	}

	ann, err := e.Vision.Annotate(ctx, data)
	if err != nil {
		return types.SignalBundle{}, failed(types.ModalityImage, fmt.Errorf("vision capability: %w", err))
	}

	bundle := types.NewSignalBundle(types.ModalityImage)
	bundle.Features[types.FeatFaceCount] = types.NumberFeature(float64(len(ann.FaceConfidences)), 1.0)
	if len(ann.FaceConfidences) > 0 {
		bundle.Features[types.FeatFaceConfidences] = types.SeriesFeature(ann.FaceConfidences, mean(ann.FaceConfidences))
	}
	if len(ann.Labels) > 0 {
		bundle.Features[types.FeatLabels] = types.LabelsFeature(ann.Labels, maxScore(ann.Labels))
	}
	bundle.Features[types.FeatSafeContent] = types.FlagFeature(ann.SafeContent, 1.0)

	addLocalImageFeatures(bundle, data)

	return bundle, nil
}

// addLocalImageFeatures records features computed without any outbound
// call: decoded dimensions and format, a perceptual dHash, and any credit
// string embedded in the image metadata. All of them degrade gracefully; an
// undecodable image simply yields fewer features.
func addLocalImageFeatures(bundle types.SignalBundle, data []byte) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		bundle.Features[types.FeatImageWidth] = types.NumberFeature(float64(cfg.Width), 1.0)
		bundle.Features[types.FeatImageHeight] = types.NumberFeature(float64(cfg.Height), 1.0)
		bundle.Features[types.FeatImageFormat] = types.TextFeature(format, 1.0)
	}

	if img, _, decErr := image.Decode(bytes.NewReader(data)); decErr == nil {
		if hash, hashErr := goimagehash.DifferenceHash(img); hashErr == nil {
			bundle.Features[types.FeatPerceptualHash] = types.TextFeature(hash.ToString(), 1.0)
		}
	}

	if credit := metadataCredit(data); credit != "" {
		bundle.Features[types.FeatMetadataCredit] = types.TextFeature(credit, 1.0)
	}
}

// creditTags maps (source, tag-name) → true for the metadata fields that can
// carry an authorship or credit string.
var creditTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Artist":    true,
		"Copyright": true,
		"Software":  true,
	},
	imagemeta.IPTC: {
		"Credit": true,
		"Byline": true,
	},
}

// metadataCredit parses EXIF/IPTC metadata from raw image bytes and returns
// the first non-empty credit field. Returns "" if the data carries none or
// cannot be parsed; metadata extraction never fails the pipeline.
func metadataCredit(data []byte) string {
	var credit string

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := creditTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if credit != "" {
				return nil
			}
			if s, ok := ti.Value.(string); ok {
				credit = strings.TrimSpace(s)
			}
			return nil
		},
	})
	if err != nil {
		return ""
	}
	return credit
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxScore(labels []types.Label) float64 {
	var m float64
	for _, l := range labels {
		if l.Score > m {
			m = l.Score
		}
	}
	return m
}
