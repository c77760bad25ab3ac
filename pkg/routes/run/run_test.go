package run

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeStore struct {
	runs    map[string]*models.Run
	results map[string][]models.RunResult
	pending []models.RunResult

	reviewed map[string]string
}

func (s *fakeStore) GetRun(_ context.Context, tenantID string, id string) (*models.Run, error) {
	run, ok := s.runs[id]
	if !ok || run.TenantID != tenantID {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return run, nil
}

func (s *fakeStore) ListResults(_ context.Context, _ string, runID string) ([]models.RunResult, error) {
	return s.results[runID], nil
}

func (s *fakeStore) ListPendingReviews(_ context.Context, _ string, _ int) ([]models.RunResult, error) {
	return s.pending, nil
}

func (s *fakeStore) Review(_ context.Context, _ string, resultID string, status string, _ *string) error {
	if _, ok := s.reviewed[resultID]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "no pending review")
	}
	s.reviewed[resultID] = status
	return nil
}

type recordingEmitter struct {
	events []string
}

func (e *recordingEmitter) EmitResultReviewed(_ context.Context, _ string, resultID string, reviewStatus string, _ string) error {
	e.events = append(e.events, resultID+":"+reviewStatus)
	return nil
}

func newTestServer(store *fakeStore) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Context())
	e.HTTPErrorHandler = middleware.Error(testLogger())
	NewHandler(testLogger(), store, &recordingEmitter{}).RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, path string, withTenant bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if withTenant {
		req.Header.Set("X-Tenant-ID", "tenant-1")
		req.Header.Set("X-User-ID", "reviewer-1")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetRun(t *testing.T) {
	store := &fakeStore{
		runs: map[string]*models.Run{
			"run-1": {ID: "run-1", TenantID: "tenant-1", Status: models.RunStatusCompleted},
		},
	}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodGet, "/api/v1/runs/run-1", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var run models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
}

func TestGetRunNotFound(t *testing.T) {
	e := newTestServer(&fakeStore{runs: map[string]*models.Run{}})

	rec := doRequest(e, http.MethodGet, "/api/v1/runs/missing", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunRequiresTenant(t *testing.T) {
	e := newTestServer(&fakeStore{})

	rec := doRequest(e, http.MethodGet, "/api/v1/runs/run-1", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListResults(t *testing.T) {
	note := "classification failed after 3 attempts: boom"
	store := &fakeStore{
		runs: map[string]*models.Run{
			"run-1": {ID: "run-1", TenantID: "tenant-1"},
		},
		results: map[string][]models.RunResult{
			"run-1": {
				{ID: "res-1", RunID: "run-1", CandidateIndex: 0, Verdict: models.VerdictDuplicate},
				{ID: "res-2", RunID: "run-1", CandidateIndex: 1, Verdict: models.VerdictNoMatch, Note: &note},
			},
		},
	}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodGet, "/api/v1/runs/run-1/results", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RunResultListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, models.VerdictDuplicate, resp.Items[0].Verdict)
}

func TestListResultsUnknownRun(t *testing.T) {
	e := newTestServer(&fakeStore{runs: map[string]*models.Run{}})

	rec := doRequest(e, http.MethodGet, "/api/v1/runs/missing/results", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveResult(t *testing.T) {
	store := &fakeStore{reviewed: map[string]string{"res-1": models.ReviewStatusPending}}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodPost, "/api/v1/results/res-1/approve", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ReviewStatusApproved, store.reviewed["res-1"])
}

func TestRejectResult(t *testing.T) {
	store := &fakeStore{reviewed: map[string]string{"res-1": models.ReviewStatusPending}}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodPost, "/api/v1/results/res-1/reject", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ReviewStatusRejected, store.reviewed["res-1"])
}

func TestReviewMissingResult(t *testing.T) {
	store := &fakeStore{reviewed: map[string]string{}}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodPost, "/api/v1/results/res-9/approve", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPendingReviews(t *testing.T) {
	pendingStatus := models.ReviewStatusPending
	store := &fakeStore{
		pending: []models.RunResult{
			{ID: "res-1", Verdict: models.VerdictPossibleUpdate, ReviewStatus: &pendingStatus},
		},
	}
	e := newTestServer(store)

	rec := doRequest(e, http.MethodGet, "/api/v1/reviews/pending", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RunResultListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestListPendingReviewsBadLimit(t *testing.T) {
	e := newTestServer(&fakeStore{})

	rec := doRequest(e, http.MethodGet, "/api/v1/reviews/pending?limit=abc", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
