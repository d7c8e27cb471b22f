// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pishield/pishield/pkg/types"
)

func TestJobArtifactRoundTrip(t *testing.T) {
	submitted := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	artifact := types.Artifact{
		ID:           "analysis-1",
		OwnerID:      "owner-1",
		URL:          "https://blobs.example/photo.png",
		DeclaredType: "image/png",
		FileName:     "photo.png",
		SubmittedAt:  submitted,
	}

	job := JobFromArtifact(artifact)
	payload, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded Job
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, artifact, decoded.Artifact())
}

func TestJobWirePayloadFields(t *testing.T) {
	job := Job{
		ID:           "analysis-1",
		OwnerID:      "owner-1",
		URL:          "https://blobs.example/clip.mp4",
		DeclaredType: "video/mp4",
		FileName:     "clip.mp4",
	}

	payload, err := json.Marshal(job)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Equal(t, "owner-1", fields["owner_id"])
	assert.Equal(t, "video/mp4", fields["declared_type"])
	assert.Equal(t, "clip.mp4", fields["file_name"])
}
