// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pishield/pishield/pkg/types"
)

func TestTextExtractStructureFeatures(t *testing.T) {
	// Four sentences of 10 characters each: variance must be exactly zero.
	body := "aaaaaaaaaa. bbbbbbbbbb. cccccccccc. dddddddddd."
	blob := &fakeBlob{data: []byte(body)}
	lang := &fakeLanguage{ann: LanguageAnnotation{Sentiment: 0.3, SentimentMagnitude: 0.9}}

	e := &TextExtractor{Blob: blob, Language: lang}
	bundle, err := e.Extract(context.Background(), types.Artifact{
		URL:          "https://blobs.example/essay.txt",
		DeclaredType: "text/plain",
	})
	require.NoError(t, err)

	assert.Equal(t, types.ModalityText, bundle.Modality)
	assert.Equal(t, body, bundle.Text(types.FeatBodyText))
	assert.Equal(t, body, lang.text)

	assert.InDelta(t, 4, bundle.Number(types.FeatWordCount), 1e-9)
	assert.InDelta(t, 4, bundle.Number(types.FeatSentenceCount), 1e-9)
	assert.InDelta(t, 10, bundle.Number(types.FeatMeanSentenceLength), 1e-9)
	assert.InDelta(t, 0, bundle.Number(types.FeatSentenceLenVariance), 1e-9)

	sentiment, ok := bundle.Feature(types.FeatSentiment)
	require.True(t, ok)
	assert.InDelta(t, 0.3, sentiment.Number, 1e-9)
	assert.InDelta(t, 0.9, sentiment.Confidence, 1e-9)
}

func TestTextExtractVariedSentenceLengths(t *testing.T) {
	// Lengths 2 and 6: mean 4, population variance 4.
	blob := &fakeBlob{data: []byte("ab. cdefgh.")}
	e := &TextExtractor{Blob: blob, Language: &fakeLanguage{}}

	bundle, err := e.Extract(context.Background(), types.Artifact{URL: "https://blobs.example/t.txt"})
	require.NoError(t, err)

	assert.InDelta(t, 2, bundle.Number(types.FeatSentenceCount), 1e-9)
	assert.InDelta(t, 4, bundle.Number(types.FeatMeanSentenceLength), 1e-9)
	assert.InDelta(t, 4, bundle.Number(types.FeatSentenceLenVariance), 1e-9)
}

func TestTextExtractStripsHTML(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head>
		<body><script>var x=1;</script><p>Visible sentence one.</p><p>Visible sentence two.</p></body></html>`
	blob := &fakeBlob{data: []byte(html)}
	lang := &fakeLanguage{}

	e := &TextExtractor{Blob: blob, Language: lang}
	bundle, err := e.Extract(context.Background(), types.Artifact{
		URL:          "https://blobs.example/page",
		DeclaredType: "text/html; charset=utf-8",
	})
	require.NoError(t, err)

	assert.NotContains(t, lang.text, "var x=1")
	assert.NotContains(t, lang.text, "color:red")
	assert.Contains(t, lang.text, "Visible sentence one")
	assert.InDelta(t, 2, bundle.Number(types.FeatSentenceCount), 1e-9)
}

func TestTextExtractEntities(t *testing.T) {
	blob := &fakeBlob{data: []byte("Acme Corp shipped a product.")}
	lang := &fakeLanguage{ann: LanguageAnnotation{
		Entities: []types.Label{{Name: "Acme Corp", Score: 0.8}},
	}}

	e := &TextExtractor{Blob: blob, Language: lang}
	bundle, err := e.Extract(context.Background(), types.Artifact{URL: "https://blobs.example/t.txt"})
	require.NoError(t, err)

	entities := bundle.Labels(types.FeatEntities)
	require.Len(t, entities, 1)
	assert.Equal(t, "Acme Corp", entities[0].Name)
}

func TestTextExtractLanguageFailure(t *testing.T) {
	blob := &fakeBlob{data: []byte("some text.")}
	lang := &fakeLanguage{err: errors.New("backend down")}

	e := &TextExtractor{Blob: blob, Language: lang}
	_, err := e.Extract(context.Background(), types.Artifact{URL: "https://blobs.example/t.txt"})
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, types.ModalityText, extErr.Modality)
}

func TestSentenceLengthsIgnoresEmptySegments(t *testing.T) {
	lengths := sentenceLengths("One!!  Two?  ... Three.")
	assert.Equal(t, []float64{3, 3, 5}, lengths)
}

func TestPopulationVariance(t *testing.T) {
	assert.InDelta(t, 0, populationVariance(nil), 1e-9)
	assert.InDelta(t, 0, populationVariance([]float64{50, 50, 50, 50}), 1e-9)
	assert.InDelta(t, 4, populationVariance([]float64{2, 6}), 1e-9)
}
