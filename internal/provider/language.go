// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/httputil"
	"github.com/pishield/pishield/pkg/types"
)

// Sentiment and entity endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	languageSentimentAPIBase = "https://language.googleapis.com/v1/documents:analyzeSentiment"
	languageEntitiesAPIBase  = "https://language.googleapis.com/v1/documents:analyzeEntities"
)

// Language calls the text analysis API: one request per feature group
// (sentiment, entities), per the provider's API shape.
type Language struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxRetries int
}

// NewLanguage builds a Language client from configuration.
func NewLanguage(cfg types.LanguageConfig) *Language {
	return &Language{
		Client:     httputil.NewClient(cfg.HTTPConfig),
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

var _ extract.LanguageCapability = (*Language)(nil)

// Annotate submits the text for sentiment and entity analysis and merges
// both responses. A failure in either call fails the whole annotation; the
// pipeline never persists partial bundles.
func (l *Language) Annotate(ctx context.Context, text string) (extract.LanguageAnnotation, error) {
	var sr languageSentimentResponse
	if err := l.post(ctx, languageSentimentAPIBase, text, &sr); err != nil {
		return extract.LanguageAnnotation{}, fmt.Errorf("sentiment analysis: %w", err)
	}

	var er languageEntitiesResponse
	if err := l.post(ctx, languageEntitiesAPIBase, text, &er); err != nil {
		return extract.LanguageAnnotation{}, fmt.Errorf("entity analysis: %w", err)
	}

	ann := extract.LanguageAnnotation{
		Sentiment:          sr.DocumentSentiment.Score,
		SentimentMagnitude: sr.DocumentSentiment.Magnitude,
	}
	for _, e := range er.Entities {
		ann.Entities = append(ann.Entities, types.Label{Name: e.Name, Score: e.Salience})
	}

	return ann, nil
}

func (l *Language) post(ctx context.Context, endpoint, text string, out any) error {
	reqBody := languageRequest{
		Document: languageDocument{Type: "PLAIN_TEXT", Content: text},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, withAPIKey(endpoint, l.APIKey), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", l.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, l.Client, req, l.MaxRetries)
	if err != nil {
		return fmt.Errorf("language API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("language API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing language response: %w", err)
	}
	return nil
}

// Language API JSON structures.
type languageRequest struct {
	Document languageDocument `json:"document"`
}

type languageDocument struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type languageSentimentResponse struct {
	DocumentSentiment languageSentiment `json:"documentSentiment"`
}

type languageSentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type languageEntitiesResponse struct {
	Entities []languageEntity `json:"entities"`
}

type languageEntity struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Salience float64 `json:"salience"`
}
