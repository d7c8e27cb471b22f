// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared across pipeline stages:
// artifacts, signal bundles, verdicts, analysis records, and per-stage
// configuration.
package types

import "time"

// Modality identifies which analyzer pipeline applies to an artifact.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
	ModalityText  Modality = "text"
)

// Artifact references a user-submitted media blob awaiting analysis. It is
// created by the upload collaborator before the pipeline runs and is never
// mutated.
type Artifact struct {
	// ID is the analysis identifier assigned at upload time.
	ID string `json:"id" yaml:"id"`

	// OwnerID identifies the submitting user.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// URL is the retrievable location of the stored blob.
	URL string `json:"url" yaml:"url"`

	// DeclaredType is the MIME type supplied at upload (e.g. "image/png").
	// Classification trusts it; there is no content sniffing.
	DeclaredType string `json:"declared_type" yaml:"declared_type"`

	// FileName is the original upload filename.
	FileName string `json:"file_name" yaml:"file_name"`

	// SubmittedAt is the upload timestamp.
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}
