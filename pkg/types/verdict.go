// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Verdict is the fused authenticity assessment derived from exactly one
// SignalBundle. Probability and Confidence are always within [0,1]; the
// fusion engine clamps, the store does not.
type Verdict struct {
	// AIGeneratedProbability is the fused likelihood the artifact is
	// AI-generated, clamped to [0,1].
	AIGeneratedProbability float64 `json:"ai_generated_probability" yaml:"ai_generated_probability"`

	// IsFlagged is true when any fusion rule fired. It is never derived
	// from thresholding the final probability.
	IsFlagged bool `json:"is_flagged" yaml:"is_flagged"`

	// Confidence is the fixed base confidence of the modality's rule set.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Counters are human-readable summary counts (faces, labels, words).
	Counters map[string]int `json:"counters,omitempty" yaml:"counters,omitempty"`

	// Reasons names the rules that contributed to the probability, in
	// evaluation order.
	Reasons []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// AnalysisRecord is the persisted unit: the artifact subset, the raw bundle,
// and the verdict. Created once at pipeline completion, read many times via
// history queries, optionally purged by a user retention action.
type AnalysisRecord struct {
	ID        string       `json:"id" yaml:"id"`
	OwnerID   string       `json:"owner_id" yaml:"owner_id"`
	FileName  string       `json:"file_name" yaml:"file_name"`
	FileURL   string       `json:"file_url" yaml:"file_url"`
	Modality  Modality     `json:"modality" yaml:"modality"`
	Bundle    SignalBundle `json:"raw_bundle" yaml:"raw_bundle"`
	Verdict   Verdict      `json:"verdict" yaml:"verdict"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}
