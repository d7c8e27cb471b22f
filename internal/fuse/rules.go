// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fuse

import (
	"strings"

	"github.com/pishield/pishield/pkg/types"
)

// syntheticVocabulary lists the label terms that indicate artificial
// content, matched case-insensitively as substrings of label names.
var syntheticVocabulary = []string{
	"synthetic",
	"artificial",
	"generated",
	"fake",
	"computer",
}

// disclaimerPhrases are canonical self-identifications a language model
// uses when refusing or qualifying a request, matched case-insensitively as
// substrings of the body text.
var disclaimerPhrases = []string{
	"as an ai",
	"as a language model",
	"as an artificial intelligence",
	"i don't have personal",
	"i don't have the ability",
	"i cannot provide",
	"i'm not able to",
}

// uniformVarianceThreshold is the sentence-length variance below which text
// is treated as suspiciously uniform.
const uniformVarianceThreshold = 50

// imageLowFaceConfidence holds when at least one face was detected and the
// mean detection confidence across all faces is below 0.70.
func imageLowFaceConfidence(b types.SignalBundle) bool {
	confidences := b.Series(types.FeatFaceConfidences)
	if len(confidences) == 0 {
		return false
	}
	return mean(confidences) < 0.70
}

// syntheticLabel holds when any label name contains a synthetic-vocabulary
// term.
func syntheticLabel(b types.SignalBundle) bool {
	for _, label := range b.Labels(types.FeatLabels) {
		name := strings.ToLower(label.Name)
		for _, term := range syntheticVocabulary {
			if strings.Contains(name, term) {
				return true
			}
		}
	}
	return false
}

// videoFaceBelow holds when the first tracked face's confidence is below
// the threshold. The two video bands share this predicate so a very low
// confidence triggers both cumulatively.
func videoFaceBelow(threshold float64) func(types.SignalBundle) bool {
	return func(b types.SignalBundle) bool {
		confidences := b.Series(types.FeatFaceConfidences)
		if len(confidences) == 0 {
			return false
		}
		return confidences[0] < threshold
	}
}

// disclaimerPhrase holds when the body text contains any canonical
// AI-disclaimer phrase.
func disclaimerPhrase(b types.SignalBundle) bool {
	body := strings.ToLower(b.Text(types.FeatBodyText))
	if body == "" {
		return false
	}
	for _, phrase := range disclaimerPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return false
}

// uniformSentenceLength holds when the extractor-computed population
// variance of sentence lengths is present and below the threshold.
func uniformSentenceLength(b types.SignalBundle) bool {
	f, ok := b.Feature(types.FeatSentenceLenVariance)
	if !ok || f.Kind != types.FeatureNumber {
		return false
	}
	return f.Number < uniformVarianceThreshold
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
