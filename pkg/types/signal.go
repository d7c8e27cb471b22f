// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FeatureKind selects which value field of a Feature is meaningful.
type FeatureKind string

const (
	FeatureNumber FeatureKind = "number"
	FeatureText   FeatureKind = "text"
	FeatureFlag   FeatureKind = "flag"
	FeatureSeries FeatureKind = "series"
	FeatureLabels FeatureKind = "labels"
)

// Label is a named observation with a provider-reported score, used for
// vision labels and language entities.
type Label struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// Feature is one named observation inside a SignalBundle. Exactly one value
// field is set, chosen by Kind. Confidence is the extraction confidence
// reported alongside the value, distinct from the fused verdict confidence.
type Feature struct {
	Kind       FeatureKind `json:"kind" yaml:"kind"`
	Number     float64     `json:"number,omitempty" yaml:"number,omitempty"`
	Text       string      `json:"text,omitempty" yaml:"text,omitempty"`
	Flag       bool        `json:"flag,omitempty" yaml:"flag,omitempty"`
	Series     []float64   `json:"series,omitempty" yaml:"series,omitempty"`
	Labels     []Label     `json:"labels,omitempty" yaml:"labels,omitempty"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
}

// NumberFeature builds a numeric feature.
func NumberFeature(v, confidence float64) Feature {
	return Feature{Kind: FeatureNumber, Number: v, Confidence: confidence}
}

// TextFeature builds a categorical or free-text feature.
func TextFeature(v string, confidence float64) Feature {
	return Feature{Kind: FeatureText, Text: v, Confidence: confidence}
}

// FlagFeature builds a boolean feature.
func FlagFeature(v bool, confidence float64) Feature {
	return Feature{Kind: FeatureFlag, Flag: v, Confidence: confidence}
}

// SeriesFeature builds a feature holding an ordered list of values.
func SeriesFeature(v []float64, confidence float64) Feature {
	return Feature{Kind: FeatureSeries, Series: v, Confidence: confidence}
}

// LabelsFeature builds a feature holding scored labels.
func LabelsFeature(v []Label, confidence float64) Feature {
	return Feature{Kind: FeatureLabels, Labels: v, Confidence: confidence}
}

// Canonical feature names emitted by the extractors. The fusion rules match
// on these, so extractors and rules must agree on them.
const (
	// Shared across modalities.
	FeatLabels = "labels"

	// Image.
	FeatFaceCount       = "face_count"
	FeatFaceConfidences = "face_confidences"
	FeatSafeContent     = "safe_content"
	FeatImageWidth      = "image_width"
	FeatImageHeight     = "image_height"
	FeatImageFormat     = "image_format"
	FeatPerceptualHash  = "perceptual_hash"
	FeatMetadataCredit  = "metadata_credit"

	// Video.
	FeatExplicitLikelihood = "explicit_likelihood"

	// Text.
	FeatBodyText            = "body_text"
	FeatWordCount           = "word_count"
	FeatSentenceCount       = "sentence_count"
	FeatMeanSentenceLength  = "mean_sentence_length"
	FeatSentenceLenVariance = "sentence_length_variance"
	FeatSentiment           = "sentiment"
	FeatEntities            = "entities"
)

// SignalBundle is the normalized feature set one extractor produced for one
// artifact. Bundles are created once per pipeline run and never mutated; a
// re-analysis produces a new bundle.
type SignalBundle struct {
	Modality Modality           `json:"modality" yaml:"modality"`
	Features map[string]Feature `json:"features" yaml:"features"`
}

// NewSignalBundle returns an empty bundle for the given modality.
func NewSignalBundle(m Modality) SignalBundle {
	return SignalBundle{Modality: m, Features: map[string]Feature{}}
}

// Feature returns the named feature and whether it is present.
func (b SignalBundle) Feature(name string) (Feature, bool) {
	f, ok := b.Features[name]
	return f, ok
}

// Number returns the numeric value of the named feature, or 0 when the
// feature is absent or not numeric.
func (b SignalBundle) Number(name string) float64 {
	f, ok := b.Features[name]
	if !ok || f.Kind != FeatureNumber {
		return 0
	}
	return f.Number
}

// Series returns the series value of the named feature, or nil.
func (b SignalBundle) Series(name string) []float64 {
	f, ok := b.Features[name]
	if !ok || f.Kind != FeatureSeries {
		return nil
	}
	return f.Series
}

// Text returns the text value of the named feature, or "".
func (b SignalBundle) Text(name string) string {
	f, ok := b.Features[name]
	if !ok || f.Kind != FeatureText {
		return ""
	}
	return f.Text
}

// Labels returns the label list of the named feature, or nil.
func (b SignalBundle) Labels(name string) []Label {
	f, ok := b.Features[name]
	if !ok || f.Kind != FeatureLabels {
		return nil
	}
	return f.Labels
}
