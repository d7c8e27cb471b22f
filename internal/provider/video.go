// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/httputil"
	"github.com/pishield/pishield/pkg/types"
)

// Annotation and operation endpoints. Declared as vars so tests can
// substitute httptest servers.
var (
	videoAnnotateAPIBase  = "https://videointelligence.googleapis.com/v1/videos:annotate"
	videoOperationAPIBase = "https://videointelligence.googleapis.com/v1/operations"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxWait      = 2 * time.Minute
)

// VideoIntelligence calls the asynchronous video annotation API. Annotate
// starts an operation and polls it until a terminal state or until the
// MaxWait budget is exhausted, in which case it returns
// extract.ErrAnalysisPending rather than blocking indefinitely or
// fabricating a result.
type VideoIntelligence struct {
	Client       *http.Client
	APIKey       string
	UserAgent    string
	MaxRetries   int
	PollInterval time.Duration
	MaxWait      time.Duration
}

// NewVideoIntelligence builds a VideoIntelligence client from configuration.
func NewVideoIntelligence(cfg types.VideoConfig) *VideoIntelligence {
	return &VideoIntelligence{
		Client:       httputil.NewClient(cfg.HTTPConfig),
		APIKey:       cfg.APIKey,
		UserAgent:    cfg.UserAgent,
		MaxRetries:   cfg.MaxRetries,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
	}
}

var _ extract.VideoCapability = (*VideoIntelligence)(nil)

// Annotate starts an annotation operation for the video URL and polls to
// completion within the wait budget.
func (v *VideoIntelligence) Annotate(ctx context.Context, videoURL string) (extract.VideoAnnotation, error) {
	opName, err := v.start(ctx, videoURL)
	if err != nil {
		return extract.VideoAnnotation{}, err
	}
	return v.poll(ctx, opName)
}

// start submits the annotation request and returns the operation name.
func (v *VideoIntelligence) start(ctx context.Context, videoURL string) (string, error) {
	reqBody := videoAnnotateRequest{
		InputURI: videoURL,
		Features: []string{"LABEL_DETECTION", "FACE_DETECTION", "EXPLICIT_CONTENT_DETECTION"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, withAPIKey(videoAnnotateAPIBase, v.APIKey), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", v.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, v.Client, req, v.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("video API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("video API returned HTTP %d", resp.StatusCode)
	}

	var or videoOperationRef
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", fmt.Errorf("parsing operation reference: %w", err)
	}
	if or.Name == "" {
		return "", fmt.Errorf("video API returned no operation name")
	}
	return or.Name, nil
}

// poll checks the operation until done, the budget runs out, or the context
// is cancelled.
func (v *VideoIntelligence) poll(ctx context.Context, opName string) (extract.VideoAnnotation, error) {
	interval := v.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxWait := v.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

	deadline := time.Now().Add(maxWait)
	for {
		op, err := v.checkOperation(ctx, opName)
		if err != nil {
			return extract.VideoAnnotation{}, err
		}

		if op.Done {
			if op.Error != nil {
				return extract.VideoAnnotation{}, fmt.Errorf("video operation failed: %s", op.Error.Message)
			}
			return normalizeVideoResponse(op.Response), nil
		}

		if time.Now().Add(interval).After(deadline) {
			return extract.VideoAnnotation{}, fmt.Errorf("operation %s: %w", opName, extract.ErrAnalysisPending)
		}

		select {
		case <-ctx.Done():
			return extract.VideoAnnotation{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (v *VideoIntelligence) checkOperation(ctx context.Context, opName string) (*videoOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withAPIKey(videoOperationAPIBase+"/"+opName, v.APIKey), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", v.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, v.Client, req, v.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("operation status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("operation status returned HTTP %d", resp.StatusCode)
	}

	var op videoOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("parsing operation status: %w", err)
	}
	return &op, nil
}

// normalizeVideoResponse flattens the first annotation result into the
// provider-neutral shape.
func normalizeVideoResponse(r videoAnnotateResponse) extract.VideoAnnotation {
	var ann extract.VideoAnnotation
	if len(r.AnnotationResults) == 0 {
		return ann
	}

	result := r.AnnotationResults[0]
	for _, l := range result.SegmentLabelAnnotations {
		score := 0.0
		if len(l.Segments) > 0 {
			score = l.Segments[0].Confidence
		}
		ann.Labels = append(ann.Labels, types.Label{Name: l.Entity.Description, Score: score})
	}
	for _, f := range result.FaceDetectionAnnotations {
		for _, track := range f.Tracks {
			ann.FaceConfidences = append(ann.FaceConfidences, track.Confidence)
		}
	}
	ann.ExplicitLikelihood = worstLikelihood(result.ExplicitAnnotation.Frames)

	return ann
}

// likelihoodRank orders explicit-content categories from benign to severe.
var likelihoodRank = map[string]int{
	"VERY_UNLIKELY": 1,
	"UNLIKELY":      2,
	"POSSIBLE":      3,
	"LIKELY":        4,
	"VERY_LIKELY":   5,
}

// worstLikelihood returns the most severe per-frame likelihood observed.
func worstLikelihood(frames []videoExplicitFrame) string {
	worst := ""
	worstRank := 0
	for _, f := range frames {
		if r := likelihoodRank[f.PornographyLikelihood]; r > worstRank {
			worst = f.PornographyLikelihood
			worstRank = r
		}
	}
	return worst
}

// Video Intelligence API JSON structures.
type videoAnnotateRequest struct {
	InputURI string   `json:"inputUri"`
	Features []string `json:"features"`
}

type videoOperationRef struct {
	Name string `json:"name"`
}

type videoOperation struct {
	Name     string                `json:"name"`
	Done     bool                  `json:"done"`
	Error    *videoOperationError  `json:"error"`
	Response videoAnnotateResponse `json:"response"`
}

type videoOperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type videoAnnotateResponse struct {
	AnnotationResults []videoAnnotationResult `json:"annotationResults"`
}

type videoAnnotationResult struct {
	SegmentLabelAnnotations  []videoLabelAnnotation  `json:"segmentLabelAnnotations"`
	FaceDetectionAnnotations []videoFaceAnnotation   `json:"faceDetectionAnnotations"`
	ExplicitAnnotation       videoExplicitAnnotation `json:"explicitAnnotation"`
}

type videoLabelAnnotation struct {
	Entity   videoEntity    `json:"entity"`
	Segments []videoSegment `json:"segments"`
}

type videoEntity struct {
	Description string `json:"description"`
}

type videoSegment struct {
	Confidence float64 `json:"confidence"`
}

type videoFaceAnnotation struct {
	Tracks []videoTrack `json:"tracks"`
}

type videoTrack struct {
	Confidence float64 `json:"confidence"`
}

type videoExplicitAnnotation struct {
	Frames []videoExplicitFrame `json:"frames"`
}

type videoExplicitFrame struct {
	PornographyLikelihood string `json:"pornographyLikelihood"`
}
