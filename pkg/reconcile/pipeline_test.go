package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/classifier"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/prefilter"
)

// identityEmbedder returns a fixed vector per text so any two records with
// the same text are perfectly similar and different texts are orthogonal.
type identityEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	next    int
	err     error
}

func (e *identityEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.vectors == nil {
		e.vectors = make(map[string][]float32)
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, 16)
	vec[e.next%16] = 1
	e.next++
	e.vectors[text] = vec
	return vec, nil
}

// mapOracle answers by candidate summary.
type mapOracle struct {
	mu      sync.Mutex
	answers map[string]*oracle.Judgment
	errors  map[string]error
	calls   map[string]int
}

func (o *mapOracle) Classify(_ context.Context, candidate *models.CandidateEvent, _ []models.CalendarEntry) (*oracle.Judgment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[candidate.Summary]++
	if err, ok := o.errors[candidate.Summary]; ok {
		return nil, err
	}
	if j, ok := o.answers[candidate.Summary]; ok {
		return j, nil
	}
	return &oracle.Judgment{Verdict: "no_match"}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestPipeline(o oracle.Oracle, embedder prefilter.Embedder) *Pipeline {
	log := testLogger()
	pf := prefilter.NewService(log, embedder, 0.75)
	cl := classifier.NewService(log, o, classifier.Config{MaxAttempts: 3, RetryBaseDelay: time.Millisecond})
	return NewPipeline(log, pf, cl, Config{WorkerCount: 2})
}

var testEntries = []models.CalendarEntry{
	{
		ID:      "evt-1",
		Summary: "Team standup",
		Start:   &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
		End:     &models.EventDateTime{DateTime: "2025-06-14T15:30:00Z"},
	},
	{
		ID:      "evt-2",
		Summary: "Sprint review",
		Start:   &models.EventDateTime{DateTime: "2025-06-16T10:00:00Z"},
		End:     &models.EventDateTime{DateTime: "2025-06-16T11:00:00Z"},
	},
}

func TestRunProducesOneResultPerCandidate(t *testing.T) {
	o := &mapOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {Verdict: "duplicate", MatchedEntryID: "evt-1"},
	}}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{Summary: "Team standup", Start: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"}},
		{Summary: "Dentist appointment", Start: &models.EventDateTime{Date: "2025-06-20"}},
		{Summary: "Sprint review", Start: &models.EventDateTime{DateTime: "2025-06-16T10:00:00Z"}},
	}

	results, cancelled := p.Run(context.Background(), candidates, testEntries)
	require.False(t, cancelled)
	require.Len(t, results, len(candidates))

	for i, r := range results {
		assert.Equal(t, i, r.CandidateIndex)
	}

	assert.Equal(t, models.VerdictDuplicate, results[0].Verdict)
	assert.Equal(t, "evt-1", results[0].MatchedEntryID)
	assert.Equal(t, models.VerdictNoMatch, results[1].Verdict)
}

func TestRunFiltersNonEvents(t *testing.T) {
	o := &mapOracle{}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{EventType: models.EventTypeNotAnEvent, Summary: "Lorem ipsum"},
	}

	results, cancelled := p.Run(context.Background(), candidates, testEntries)
	require.False(t, cancelled)
	require.Len(t, results, 1)

	assert.Equal(t, models.VerdictNoMatch, results[0].Verdict)
	assert.Equal(t, "candidate is not an event", results[0].Note)
	assert.Zero(t, o.calls["Lorem ipsum"])
}

func TestRunAnswersTextlessCandidatesLocally(t *testing.T) {
	// A candidate with neither summary nor description has nothing to match
	// on; it gets no_match without spending an oracle call, even when the
	// degraded filter would have handed it the full entry set.
	o := &mapOracle{}
	p := newTestPipeline(o, &identityEmbedder{err: errors.New("embedding backend down")})

	candidates := []models.CandidateEvent{
		{Start: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"}},
	}

	results, cancelled := p.Run(context.Background(), candidates, testEntries)
	require.False(t, cancelled)
	require.Len(t, results, 1)

	assert.Equal(t, models.VerdictNoMatch, results[0].Verdict)
	assert.Equal(t, "candidate has no comparable text", results[0].Note)
	assert.Empty(t, o.calls)
}

func TestRunDowngradesEmptyUpdateToDuplicate(t *testing.T) {
	// The oracle says update, but the candidate carries nothing the entry
	// doesn't already have.
	o := &mapOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {Verdict: "update", MatchedEntryID: "evt-1"},
	}}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{
			Summary: "Team standup",
			// Whole-day proposal on the same day as the existing instant:
			// precision is preserved, so nothing changes.
			Start: &models.EventDateTime{Date: "2025-06-14"},
		},
	}

	results, _ := p.Run(context.Background(), candidates, testEntries)
	require.Len(t, results, 1)

	assert.Equal(t, models.VerdictDuplicate, results[0].Verdict)
	assert.Empty(t, results[0].Diff)
}

func TestRunReportsRealUpdates(t *testing.T) {
	o := &mapOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {Verdict: "update", MatchedEntryID: "evt-1"},
	}}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{
			Summary:  "Team standup",
			Location: "Main conference room",
			Start:    &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			End:      &models.EventDateTime{DateTime: "2025-06-14T15:30:00Z"},
		},
	}

	results, _ := p.Run(context.Background(), candidates, testEntries)
	require.Len(t, results, 1)

	assert.Equal(t, models.VerdictUpdate, results[0].Verdict)
	require.Contains(t, results[0].Diff, "location")
	assert.Equal(t, "Main conference room", results[0].Diff["location"].New)
}

func TestRunDiffsAgainstOracleProposal(t *testing.T) {
	// When the oracle returns its own merged view of the event, the diff is
	// computed against that view instead of the raw candidate.
	o := &mapOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {
			Verdict:        "update",
			MatchedEntryID: "evt-1",
			Proposed: &models.CandidateEvent{
				Summary:  "Team standup",
				Location: "Room 4B",
				Start:    &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
				End:      &models.EventDateTime{DateTime: "2025-06-14T15:30:00Z"},
			},
		},
	}}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{
			Summary:  "Team standup",
			Location: "Main conference room",
			Start:    &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			End:      &models.EventDateTime{DateTime: "2025-06-14T15:30:00Z"},
		},
	}

	results, _ := p.Run(context.Background(), candidates, testEntries)
	require.Len(t, results, 1)

	assert.Equal(t, models.VerdictUpdate, results[0].Verdict)
	require.Contains(t, results[0].Diff, "location")
	assert.Equal(t, "Room 4B", results[0].Diff["location"].New)
}

func TestRunIsolatesFailingCandidates(t *testing.T) {
	o := &mapOracle{
		answers: map[string]*oracle.Judgment{
			"Sprint review": {Verdict: "duplicate", MatchedEntryID: "evt-2"},
		},
		errors: map[string]error{
			"Team standup": errors.New("oracle permanently unavailable"),
		},
	}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{Summary: "Team standup", Start: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"}},
		{Summary: "Sprint review", Start: &models.EventDateTime{DateTime: "2025-06-16T10:00:00Z"}},
	}

	results, cancelled := p.Run(context.Background(), candidates, testEntries)
	require.False(t, cancelled)
	require.Len(t, results, 2)

	assert.Equal(t, models.VerdictNoMatch, results[0].Verdict)
	assert.Contains(t, results[0].Note, "classification failed")
	assert.Equal(t, 3, o.calls["Team standup"])

	assert.Equal(t, models.VerdictDuplicate, results[1].Verdict)
}

func TestRunCancellationReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := &mapOracle{}
	p := newTestPipeline(o, &identityEmbedder{})

	candidates := []models.CandidateEvent{
		{Summary: "Team standup"},
		{Summary: "Sprint review"},
	}

	results, cancelled := p.Run(ctx, candidates, testEntries)
	require.True(t, cancelled)
	require.Len(t, results, len(candidates))

	for _, r := range results {
		assert.Equal(t, models.VerdictNoMatch, r.Verdict)
		assert.Equal(t, "run cancelled before this candidate was classified", r.Note)
	}
}

func TestRunEmbedFailureStillClassifiesEverything(t *testing.T) {
	o := &mapOracle{answers: map[string]*oracle.Judgment{
		"Team standup": {Verdict: "duplicate", MatchedEntryID: "evt-1"},
	}}
	p := newTestPipeline(o, &identityEmbedder{err: errors.New("embedding backend down")})

	candidates := []models.CandidateEvent{
		{Summary: "Team standup", Start: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"}},
	}

	results, cancelled := p.Run(context.Background(), candidates, testEntries)
	require.False(t, cancelled)
	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictDuplicate, results[0].Verdict)
}
