// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pishield/pishield/pkg/types"
)

// TextExtractor fetches the raw text, submits it to the language capability,
// and computes purely local structure features: word count, sentence count,
// mean sentence length, and the population variance of sentence lengths.
type TextExtractor struct {
	Blob     BlobFetcher
	Language LanguageCapability
}

// Modality returns the modality tag this extractor serves.
func (e *TextExtractor) Modality() types.Modality { return types.ModalityText }

// Extract produces the text SignalBundle. For text/html artifacts the
// markup is stripped before analysis so tags do not distort the structure
// statistics.
func (e *TextExtractor) Extract(ctx context.Context, artifact types.Artifact) (types.SignalBundle, error) {
	data, err := e.Blob.Fetch(ctx, artifact.URL)
	if err != nil {
		return types.SignalBundle{}, failed(types.ModalityText, fmt.Errorf("fetching artifact: %w", err))
	}

	body := string(data)
	if isHTML(artifact.DeclaredType) {
		body, err = stripMarkup(body)
		if err != nil {
			return types.SignalBundle{}, failed(types.ModalityText, fmt.Errorf("parsing HTML: %w", err))
		}
	}

	ann, err := e.Language.Annotate(ctx, body)
	if err != nil {
		return types.SignalBundle{}, failed(types.ModalityText, fmt.Errorf("language capability: %w", err))
	}

	bundle := types.NewSignalBundle(types.ModalityText)
	bundle.Features[types.FeatBodyText] = types.TextFeature(body, 1.0)
	bundle.Features[types.FeatSentiment] = types.NumberFeature(ann.Sentiment, ann.SentimentMagnitude)
	if len(ann.Entities) > 0 {
		bundle.Features[types.FeatEntities] = types.LabelsFeature(ann.Entities, maxScore(ann.Entities))
	}

	lengths := sentenceLengths(body)
	bundle.Features[types.FeatWordCount] = types.NumberFeature(float64(len(strings.Fields(body))), 1.0)
	bundle.Features[types.FeatSentenceCount] = types.NumberFeature(float64(len(lengths)), 1.0)
	bundle.Features[types.FeatMeanSentenceLength] = types.NumberFeature(mean(lengths), 1.0)
	bundle.Features[types.FeatSentenceLenVariance] = types.NumberFeature(populationVariance(lengths), 1.0)

	return bundle, nil
}

func isHTML(declaredType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(declaredType)), "text/html")
}

// stripMarkup returns the visible text of an HTML document.
func stripMarkup(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// sentenceLengths splits text on sentence-terminal punctuation and returns
// the character count of each non-empty sentence.
func sentenceLengths(text string) []float64 {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var lengths []float64
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		lengths = append(lengths, float64(len([]rune(s))))
	}
	return lengths
}

// populationVariance computes variance over all values, dividing by n
// rather than n-1, so the result is deterministic and sampling-free.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}
