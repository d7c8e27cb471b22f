// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pishield/pishield/internal/classify"
	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/pipeline"
	"github.com/pishield/pishield/internal/queue"
	"github.com/pishield/pishield/internal/store"
	"github.com/pishield/pishield/pkg/types"
)

type fakeAnalyzer struct {
	record *types.AnalysisRecord
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, artifact types.Artifact) (*types.AnalysisRecord, error) {
	f.calls++
	if _, err := classify.Classify(artifact.DeclaredType); err != nil {
		return nil, err
	}
	if f.err != nil {
		return f.record, f.err
	}
	if f.record != nil {
		return f.record, nil
	}
	return &types.AnalysisRecord{ID: artifact.ID, OwnerID: artifact.OwnerID, Modality: types.ModalityImage}, nil
}

type fakeRecordStore struct {
	records map[string]types.AnalysisRecord
	purged  int64
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]types.AnalysisRecord{}}
}

func (f *fakeRecordStore) Save(_ context.Context, _ string, record types.AnalysisRecord) (string, error) {
	f.records[record.ID] = record
	return record.ID, nil
}

func (f *fakeRecordStore) GetByOwner(_ context.Context, ownerID, recordID string) (*types.AnalysisRecord, error) {
	rec, ok := f.records[recordID]
	if !ok || rec.OwnerID != ownerID {
		return nil, store.ErrRecordNotFound
	}
	return &rec, nil
}

func (f *fakeRecordStore) ListByOwner(_ context.Context, ownerID string, _, _ int) ([]types.AnalysisRecord, error) {
	var out []types.AnalysisRecord
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) DeleteByOwner(_ context.Context, ownerID, recordID string) error {
	rec, ok := f.records[recordID]
	if !ok || rec.OwnerID != ownerID {
		return store.ErrRecordNotFound
	}
	delete(f.records, recordID)
	return nil
}

func (f *fakeRecordStore) PurgeOwner(_ context.Context, ownerID string) (int64, error) {
	for id, rec := range f.records {
		if rec.OwnerID == ownerID {
			delete(f.records, id)
			f.purged++
		}
	}
	return f.purged, nil
}

type fakeJobs struct {
	jobs []queue.Job
	err  error
}

func (f *fakeJobs) EnqueueJob(_ context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func testServer(analyzer Analyzer, st store.Store, jobs JobEnqueuer) *Server {
	return New(analyzer, st, jobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(s *Server, method, path, owner, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

const analyzeBody = `{"url":"https://blobs.example/photo.png","declared_type":"image/png","file_name":"photo.png"}`

func TestCreateAnalysisSuccess(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", analyzeBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var rec types.AnalysisRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "owner-1", rec.OwnerID)
}

func TestCreateAnalysisRequiresOwnerHeader(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	s := testServer(analyzer, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "", analyzeBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, analyzer.calls)
}

func TestCreateAnalysisRejectsBadBody(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAnalysisUnsupportedType(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	body := `{"url":"https://blobs.example/doc.pdf","declared_type":"application/pdf"}`
	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", body)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestCreateAnalysisPending(t *testing.T) {
	analyzer := &fakeAnalyzer{err: extract.ErrAnalysisPending}
	s := testServer(analyzer, newFakeRecordStore(), nil)

	body := `{"url":"https://blobs.example/clip.mp4","declared_type":"video/mp4"}`
	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "pending")
}

func TestCreateAnalysisExtractionFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: &extract.ExtractionError{
		Modality: types.ModalityImage,
		Cause:    errors.New("vision backend unavailable"),
	}}
	s := testServer(analyzer, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", analyzeBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateAnalysisPersistenceFailureReturnsRecord(t *testing.T) {
	record := &types.AnalysisRecord{
		ID:      "analysis-1",
		OwnerID: "owner-1",
		Verdict: types.Verdict{AIGeneratedProbability: 0.4, IsFlagged: true},
	}
	analyzer := &fakeAnalyzer{
		record: record,
		err:    &pipeline.PersistenceError{RecordID: "analysis-1", Cause: errors.New("disk full")},
	}
	s := testServer(analyzer, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses", "owner-1", analyzeBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Record  types.AnalysisRecord `json:"record"`
		Warning string               `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "analysis-1", resp.Record.ID)
	assert.NotEmpty(t, resp.Warning)
}

func TestCreateAnalysisAsyncEnqueues(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	jobs := &fakeJobs{}
	s := testServer(analyzer, newFakeRecordStore(), jobs)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses?async=1", "owner-1", analyzeBody)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Zero(t, analyzer.calls, "async requests must not run the pipeline inline")
	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, "owner-1", jobs.jobs[0].OwnerID)
	assert.Equal(t, "image/png", jobs.jobs[0].DeclaredType)
}

func TestCreateAnalysisAsyncUnsupportedTypeFailsFast(t *testing.T) {
	jobs := &fakeJobs{}
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), jobs)

	body := `{"url":"https://blobs.example/doc.pdf","declared_type":"application/pdf"}`
	w := doRequest(s, http.MethodPost, "/api/v1/analyses?async=1", "owner-1", body)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, jobs.jobs)
}

func TestCreateAnalysisAsyncWithoutQueue(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodPost, "/api/v1/analyses?async=1", "owner-1", analyzeBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetAnalysisScopedToOwner(t *testing.T) {
	st := newFakeRecordStore()
	st.records["analysis-1"] = types.AnalysisRecord{ID: "analysis-1", OwnerID: "owner-1"}
	s := testServer(&fakeAnalyzer{}, st, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/analyses/analysis-1", "owner-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/api/v1/analyses/analysis-1", "owner-2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAnalyses(t *testing.T) {
	st := newFakeRecordStore()
	st.records["a1"] = types.AnalysisRecord{ID: "a1", OwnerID: "owner-1"}
	st.records["a2"] = types.AnalysisRecord{ID: "a2", OwnerID: "owner-2"}
	s := testServer(&fakeAnalyzer{}, st, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/analyses?limit=10", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Analyses []types.AnalysisRecord `json:"analyses"`
		Count    int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Analyses, 1)
	assert.Equal(t, "a1", resp.Analyses[0].ID)
}

func TestListAnalysesEmpty(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodGet, "/api/v1/analyses", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analyses":[]`)
}

func TestDeleteAnalysis(t *testing.T) {
	st := newFakeRecordStore()
	st.records["analysis-1"] = types.AnalysisRecord{ID: "analysis-1", OwnerID: "owner-1"}
	s := testServer(&fakeAnalyzer{}, st, nil)

	w := doRequest(s, http.MethodDelete, "/api/v1/analyses/analysis-1", "owner-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(s, http.MethodDelete, "/api/v1/analyses/analysis-1", "owner-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPurgeAnalyses(t *testing.T) {
	st := newFakeRecordStore()
	st.records["a1"] = types.AnalysisRecord{ID: "a1", OwnerID: "owner-1"}
	st.records["a2"] = types.AnalysisRecord{ID: "a2", OwnerID: "owner-1"}
	s := testServer(&fakeAnalyzer{}, st, nil)

	w := doRequest(s, http.MethodDelete, "/api/v1/analyses", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":2`)
}

func TestMetricsEndpoint(t *testing.T) {
	st := newFakeRecordStore()
	s := testServer(&fakeAnalyzer{}, st, nil)

	// Serve one real request so the counters have something to report.
	w := doRequest(s, http.MethodGet, "/api/v1/analyses", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "pishield_http_requests_total")
	assert.Contains(t, body, "pishield_http_request_duration_seconds")
	assert.Contains(t, body, `route="/api/v1/analyses"`)
}

func TestHealthz(t *testing.T) {
	s := testServer(&fakeAnalyzer{}, newFakeRecordStore(), nil)

	w := doRequest(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
