// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fuse turns one SignalBundle into one Verdict. Fusion is a pure,
// deterministic function: an ordered list of independent predicate→adjustment
// rules per modality, evaluated over the bundle, additive and cumulative.
// Multiple weak signals compound; the final clamp is the only place the
// probability is bounded.
package fuse

import (
	"github.com/pishield/pishield/pkg/types"
)

// baseline is the starting probability and fixed confidence per modality.
type baseline struct {
	probability float64
	confidence  float64
}

var baselines = map[types.Modality]baseline{
	types.ModalityImage: {probability: 0.10, confidence: 0.80},
	types.ModalityVideo: {probability: 0.15, confidence: 0.85},
	types.ModalityText:  {probability: 0.20, confidence: 0.75},
}

// rule is one independent signal check. When the predicate holds, delta is
// added to the probability and, if flags is set, the verdict is flagged.
// Rules never subtract and never see each other's results, so each one is
// unit-testable in isolation and new signals slot in without restructuring.
type rule struct {
	name  string
	when  func(b types.SignalBundle) bool
	delta float64
	flags bool
}

var rulesByModality = map[types.Modality][]rule{
	types.ModalityImage: {
		{name: "low_face_confidence", when: imageLowFaceConfidence, delta: 0.30, flags: true},
		{name: "synthetic_label", when: syntheticLabel, delta: 0.40, flags: true},
	},
	types.ModalityVideo: {
		{name: "low_tracked_face_confidence", when: videoFaceBelow(0.80), delta: 0.30, flags: true},
		{name: "very_low_tracked_face_confidence", when: videoFaceBelow(0.70), delta: 0.20, flags: true},
	},
	types.ModalityText: {
		{name: "ai_disclaimer_phrase", when: disclaimerPhrase, delta: 0.60, flags: true},
		{name: "uniform_sentence_length", when: uniformSentenceLength, delta: 0.20, flags: true},
	},
}

// Fuse evaluates the modality's rule set over the bundle and returns the
// verdict. An empty bundle yields the base probability and confidence; a
// thin bundle is a valid observation, never an error.
func Fuse(modality types.Modality, bundle types.SignalBundle) types.Verdict {
	base := baselines[modality]

	verdict := types.Verdict{
		AIGeneratedProbability: base.probability,
		Confidence:             base.confidence,
		Counters:               counters(bundle),
	}

	for _, r := range rulesByModality[modality] {
		if !r.when(bundle) {
			continue
		}
		verdict.AIGeneratedProbability += r.delta
		if r.flags {
			verdict.IsFlagged = true
		}
		verdict.Reasons = append(verdict.Reasons, r.name)
	}

	verdict.AIGeneratedProbability = clamp01(verdict.AIGeneratedProbability)
	return verdict
}

// counters builds the human-readable summary counts for whichever features
// the bundle carries.
func counters(bundle types.SignalBundle) map[string]int {
	c := map[string]int{}
	if f, ok := bundle.Feature(types.FeatFaceCount); ok {
		c["faces"] = int(f.Number)
	}
	if labels := bundle.Labels(types.FeatLabels); labels != nil {
		c["labels"] = len(labels)
	}
	if entities := bundle.Labels(types.FeatEntities); entities != nil {
		c["entities"] = len(entities)
	}
	if f, ok := bundle.Feature(types.FeatWordCount); ok {
		c["words"] = int(f.Number)
	}
	if f, ok := bundle.Feature(types.FeatSentenceCount); ok {
		c["sentences"] = int(f.Number)
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
