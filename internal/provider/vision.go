// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the external analyzer capabilities over
// plain HTTP. Each client is a small struct satisfying the corresponding
// capability interface in internal/extract; any provider returning the same
// shapes is substitutable without touching the fusion engine.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/httputil"
	"github.com/pishield/pishield/pkg/types"
)

// visionAPIBase is the image annotation endpoint. Declared as a var so
// tests can substitute an httptest server.
var visionAPIBase = "https://vision.googleapis.com/v1/images:annotate"

const defaultMaxResults = 10

// Vision calls the image annotation API: labels, faces, and safe-content
// in a single request.
type Vision struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxResults int
	MaxRetries int
}

// NewVision builds a Vision client from configuration.
func NewVision(cfg types.VisionConfig) *Vision {
	return &Vision{
		Client:     httputil.NewClient(cfg.HTTPConfig),
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxResults: cfg.MaxResults,
		MaxRetries: cfg.MaxRetries,
	}
}

var _ extract.VisionCapability = (*Vision)(nil)

// Annotate submits image bytes and normalizes the response.
func (v *Vision) Annotate(ctx context.Context, image []byte) (extract.VisionAnnotation, error) {
	maxResults := v.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	reqBody := visionRequest{
		Requests: []visionAnnotateRequest{{
			Image: visionImage{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []visionFeature{
				{Type: "LABEL_DETECTION", MaxResults: maxResults},
				{Type: "FACE_DETECTION", MaxResults: maxResults},
				{Type: "SAFE_SEARCH_DETECTION"},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return extract.VisionAnnotation{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, withAPIKey(visionAPIBase, v.APIKey), bytes.NewReader(payload))
	if err != nil {
		return extract.VisionAnnotation{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", v.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, v.Client, req, v.MaxRetries)
	if err != nil {
		return extract.VisionAnnotation{}, fmt.Errorf("vision API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return extract.VisionAnnotation{}, fmt.Errorf("vision API returned HTTP %d", resp.StatusCode)
	}

	var vr visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return extract.VisionAnnotation{}, fmt.Errorf("parsing vision response: %w", err)
	}
	if len(vr.Responses) == 0 {
		return extract.VisionAnnotation{}, fmt.Errorf("vision API returned no responses")
	}

	r := vr.Responses[0]
	if r.Error != nil {
		return extract.VisionAnnotation{}, fmt.Errorf("vision API error: %s", r.Error.Message)
	}

	ann := extract.VisionAnnotation{SafeContent: safeContent(r.SafeSearchAnnotation)}
	for _, l := range r.LabelAnnotations {
		ann.Labels = append(ann.Labels, types.Label{Name: l.Description, Score: l.Score})
	}
	for _, f := range r.FaceAnnotations {
		ann.FaceConfidences = append(ann.FaceConfidences, f.DetectionConfidence)
	}

	return ann, nil
}

// safeContent is false when any risk category is likely or worse. Spoof
// counts as a risk category: a likely-spoofed image is a manipulation
// signal, not merely a content rating.
func safeContent(s visionSafeSearch) bool {
	for _, likelihood := range []string{s.Adult, s.Spoof, s.Violence, s.Racy} {
		if likelihood == "LIKELY" || likelihood == "VERY_LIKELY" {
			return false
		}
	}
	return true
}

// withAPIKey appends the key query parameter when a key is configured.
func withAPIKey(base, key string) string {
	if key == "" {
		return base
	}
	return base + "?" + url.Values{"key": {key}}.Encode()
}

// Vision API JSON structures.
type visionRequest struct {
	Requests []visionAnnotateRequest `json:"requests"`
}

type visionAnnotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type visionResponse struct {
	Responses []visionAnnotateResponse `json:"responses"`
}

type visionAnnotateResponse struct {
	LabelAnnotations     []visionLabel    `json:"labelAnnotations"`
	FaceAnnotations      []visionFace     `json:"faceAnnotations"`
	SafeSearchAnnotation visionSafeSearch `json:"safeSearchAnnotation"`
	Error                *visionError     `json:"error"`
}

type visionLabel struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type visionFace struct {
	DetectionConfidence float64 `json:"detectionConfidence"`
}

type visionSafeSearch struct {
	Adult    string `json:"adult"`
	Spoof    string `json:"spoof"`
	Medical  string `json:"medical"`
	Violence string `json:"violence"`
	Racy     string `json:"racy"`
}

type visionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
