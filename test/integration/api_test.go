package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/classifier"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/prefilter"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
	"github.com/Ramsey-B/sage/pkg/reconcile"
	reconcileroute "github.com/Ramsey-B/sage/pkg/routes/reconcile"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fullSetEmbedder returns the same vector for every text, so every entry
// passes the similarity threshold and classification sees the full window.
type fullSetEmbedder struct{}

func (fullSetEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// scriptedOracle answers by candidate summary.
type scriptedOracle struct {
	mu      sync.Mutex
	answers map[string]*oracle.Judgment
	calls   int
}

func (o *scriptedOracle) Classify(_ context.Context, candidate *models.CandidateEvent, _ []models.CalendarEntry) (*oracle.Judgment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if j, ok := o.answers[candidate.Summary]; ok {
		return j, nil
	}
	return &oracle.Judgment{Verdict: "no_match"}, nil
}

// memoryRunStore stores runs in memory in place of Postgres.
type memoryRunStore struct {
	mu      sync.Mutex
	runs    []*models.Run
	results [][]models.ReconciliationResult
}

func (s *memoryRunStore) CreateRun(_ context.Context, run *models.Run, results []models.ReconciliationResult) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = "run-1"
	s.runs = append(s.runs, run)
	s.results = append(s.results, results)
	return run, nil
}

type recordingEmitter struct {
	mu        sync.Mutex
	completed int
	proposed  int
}

func (e *recordingEmitter) EmitRunCompleted(_ context.Context, _ *models.Run, _ []models.ReconciliationResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed++
	return nil
}

func (e *recordingEmitter) EmitUpdatesProposed(_ context.Context, run *models.Run, results []models.ReconciliationResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range results {
		if results[i].Verdict == models.VerdictUpdate || results[i].Verdict == models.VerdictPossibleUpdate {
			e.proposed++
		}
	}
	return nil
}

func newTestServer(t *testing.T, o oracle.Oracle, store *memoryRunStore, emitter *recordingEmitter, budget *ratelimit.DailyBudget) *echo.Echo {
	t.Helper()

	log := testLogger()
	pipeline := reconcile.NewPipeline(
		log,
		prefilter.NewService(log, fullSetEmbedder{}, prefilter.DefaultThreshold),
		classifier.NewService(log, o, classifier.Config{MaxAttempts: 2, RetryBaseDelay: time.Millisecond}),
		reconcile.Config{WorkerCount: 2},
	)

	e := echo.New()
	e.Use(middleware.Context())
	e.HTTPErrorHandler = middleware.Error(log)

	handler := reconcileroute.NewHandler(log, pipeline, store, emitter)
	handler.RegisterRoutes(e, middleware.DailyBudget(budget))

	return e
}

func doReconcile(e *echo.Echo, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func identityHeaders() map[string]string {
	return map[string]string{
		"X-Tenant-ID": "tenant-1",
		"X-User-ID":   "user-1",
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	o := &scriptedOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {Verdict: "certain_update", MatchedEntryID: "entry-1"},
		"Dentist":      {Verdict: "no_counterpart"},
	}}
	store := &memoryRunStore{}
	emitter := &recordingEmitter{}
	budget := ratelimit.NewDailyBudget(ratelimit.NewMemoryCounter(), ratelimit.DefaultPolicy(), testLogger())

	e := newTestServer(t, o, store, emitter, budget)

	body := `{
		"candidates": [
			{"event_type": "full_potential_event_details", "summary": "Team standup", "location": "Room B", "start": {"dateTime": "2025-06-14T09:00:00-07:00"}},
			{"event_type": "incomplete_event_details", "summary": "Dentist"},
			{"event_type": "not_an_event", "summary": "Lunch menu"}
		],
		"entries": [
			{"id": "entry-1", "summary": "Team standup", "location": "Room A", "start": {"dateTime": "2025-06-14T09:00:00-07:00"}}
		]
	}`

	rec := doReconcile(e, body, identityHeaders())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, models.RunStatusCompleted, resp.Status)
	assert.False(t, resp.Cancelled)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, models.VerdictUpdate, resp.Results[0].Verdict)
	assert.Equal(t, "entry-1", resp.Results[0].MatchedEntryID)
	require.Contains(t, resp.Results[0].Diff, "location")

	assert.Equal(t, models.VerdictNoMatch, resp.Results[1].Verdict)

	assert.Equal(t, models.VerdictNoMatch, resp.Results[2].Verdict)
	assert.Equal(t, "candidate is not an event", resp.Results[2].Note)

	// The non-event never reached the oracle.
	assert.Equal(t, 2, o.calls)

	require.Len(t, store.runs, 1)
	assert.Equal(t, "tenant-1", store.runs[0].TenantID)
	assert.Equal(t, 3, store.runs[0].CandidateCount)

	assert.Equal(t, 1, emitter.completed)
	assert.Equal(t, 1, emitter.proposed)

	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestReconcileRequiresIdentityHeaders(t *testing.T) {
	store := &memoryRunStore{}
	budget := ratelimit.NewDailyBudget(ratelimit.NewMemoryCounter(), ratelimit.DefaultPolicy(), testLogger())
	e := newTestServer(t, &scriptedOracle{}, store, &recordingEmitter{}, budget)

	rec := doReconcile(e, `{"candidates": [{"summary": "x"}]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.runs)
}

func TestReconcileValidatesBody(t *testing.T) {
	store := &memoryRunStore{}
	budget := ratelimit.NewDailyBudget(ratelimit.NewMemoryCounter(), ratelimit.DefaultPolicy(), testLogger())
	e := newTestServer(t, &scriptedOracle{}, store, &recordingEmitter{}, budget)

	// empty candidate list fails validation
	rec := doReconcile(e, `{"candidates": [], "entries": []}`, identityHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.runs)
}

func TestReconcileBudgetExhaustion(t *testing.T) {
	store := &memoryRunStore{}
	budget := ratelimit.NewDailyBudget(ratelimit.NewMemoryCounter(), ratelimit.Policy{DefaultLimit: 1, MemberLimit: 2}, testLogger())
	e := newTestServer(t, &scriptedOracle{}, store, &recordingEmitter{}, budget)

	body := `{"candidates": [{"event_type": "incomplete_event_details", "summary": "Dentist"}], "entries": []}`

	rec := doReconcile(e, body, identityHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doReconcile(e, body, identityHeaders())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Len(t, store.runs, 1)

	// Member accounts get the higher limit.
	headers := identityHeaders()
	headers["X-User-ID"] = "member-1"
	headers["X-User-Member"] = "true"
	rec = doReconcile(e, body, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}
