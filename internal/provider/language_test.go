// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageAnnotateMergesBothCalls(t *testing.T) {
	var sentimentDoc, entitiesDoc languageRequest

	sentiment := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sentimentDoc))
		fmt.Fprint(w, `{"documentSentiment":{"score":-0.4,"magnitude":1.2}}`)
	}))
	defer sentiment.Close()

	entities := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&entitiesDoc))
		fmt.Fprint(w, `{"entities":[{"name":"Acme Corp","type":"ORGANIZATION","salience":0.8}]}`)
	}))
	defer entities.Close()

	oldS, oldE := languageSentimentAPIBase, languageEntitiesAPIBase
	languageSentimentAPIBase = sentiment.URL
	languageEntitiesAPIBase = entities.URL
	defer func() {
		languageSentimentAPIBase = oldS
		languageEntitiesAPIBase = oldE
	}()

	l := &Language{Client: http.DefaultClient}
	ann, err := l.Annotate(context.Background(), "some submitted text")
	require.NoError(t, err)

	assert.Equal(t, "some submitted text", sentimentDoc.Document.Content)
	assert.Equal(t, "some submitted text", entitiesDoc.Document.Content)
	assert.Equal(t, "PLAIN_TEXT", sentimentDoc.Document.Type)

	assert.InDelta(t, -0.4, ann.Sentiment, 1e-9)
	assert.InDelta(t, 1.2, ann.SentimentMagnitude, 1e-9)
	require.Len(t, ann.Entities, 1)
	assert.Equal(t, "Acme Corp", ann.Entities[0].Name)
	assert.InDelta(t, 0.8, ann.Entities[0].Score, 1e-9)
}

func TestLanguageAnnotateSentimentFailureAborts(t *testing.T) {
	sentiment := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer sentiment.Close()

	var entityCalls int
	entities := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entityCalls++
		fmt.Fprint(w, `{"entities":[]}`)
	}))
	defer entities.Close()

	oldS, oldE := languageSentimentAPIBase, languageEntitiesAPIBase
	languageSentimentAPIBase = sentiment.URL
	languageEntitiesAPIBase = entities.URL
	defer func() {
		languageSentimentAPIBase = oldS
		languageEntitiesAPIBase = oldE
	}()

	l := &Language{Client: http.DefaultClient}
	_, err := l.Annotate(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentiment analysis")
	assert.Zero(t, entityCalls, "entity call must not happen after sentiment failure")
}

func TestLanguageAnnotateEntityFailureAborts(t *testing.T) {
	sentiment := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"documentSentiment":{"score":0.1,"magnitude":0.2}}`)
	}))
	defer sentiment.Close()

	entities := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer entities.Close()

	oldS, oldE := languageSentimentAPIBase, languageEntitiesAPIBase
	languageSentimentAPIBase = sentiment.URL
	languageEntitiesAPIBase = entities.URL
	defer func() {
		languageSentimentAPIBase = oldS
		languageEntitiesAPIBase = oldE
	}()

	l := &Language{Client: http.DefaultClient}
	_, err := l.Annotate(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity analysis")
}
