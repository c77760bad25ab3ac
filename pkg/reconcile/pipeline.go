// Package reconcile drives a reconciliation run: pre-filter, classification,
// and diffing for a batch of candidates against one calendar window.
package reconcile

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/classifier"
	"github.com/Ramsey-B/sage/pkg/datetime"
	"github.com/Ramsey-B/sage/pkg/diff"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/prefilter"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Config contains configuration for the pipeline.
type Config struct {
	WorkerCount int // Concurrent candidates in flight (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{WorkerCount: 4}
}

// Pipeline reconciles candidate events against calendar entries. It holds no
// per-run state: every call to Run is independent.
type Pipeline struct {
	log        ectologger.Logger
	prefilter  *prefilter.Service
	classifier *classifier.Service
	cfg        Config
}

// NewPipeline creates a reconciliation pipeline.
func NewPipeline(log ectologger.Logger, pf *prefilter.Service, cl *classifier.Service, cfg Config) *Pipeline {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	return &Pipeline{
		log:        log,
		prefilter:  pf,
		classifier: cl,
		cfg:        cfg,
	}
}

// Run reconciles every candidate and returns exactly one result per input
// candidate, in input order. The run itself never fails: per-candidate
// problems are recorded on that candidate's result.
//
// Cancellation is cooperative. When ctx is cancelled, candidates not yet
// classified get verdict no_match with a cancellation note, finished results
// are returned as-is, and cancelled reports true.
func (p *Pipeline) Run(ctx context.Context, candidates []models.CandidateEvent, entries []models.CalendarEntry) (results []models.ReconciliationResult, cancelled bool) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Pipeline.Run")
	defer span.End()

	log := p.log.WithContext(ctx).WithFields(map[string]any{
		"candidate_count": len(candidates),
		"entry_count":     len(entries),
	})
	log.Info("Starting reconciliation run")

	results = make([]models.ReconciliationResult, len(candidates))
	if len(candidates) == 0 {
		return results, false
	}

	sets, usedFallback := p.prefilter.BuildCounterparts(ctx, candidates, entries)
	if usedFallback {
		metrics.PrefilterFallbackTotal.Inc()
		log.Warn("Similarity pre-filter degraded; classifying against the full entry set")
	}

	indices := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < p.cfg.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = p.reconcileOne(ctx, i, &candidates[i], sets[i])
			}
		}()
	}

	for i := range candidates {
		indices <- i
	}
	close(indices)
	wg.Wait()

	cancelled = ctx.Err() != nil
	if cancelled {
		log.Warn("Reconciliation run cancelled; returning partial results")
	} else {
		log.Info("Reconciliation run completed")
	}

	return results, cancelled
}

// reconcileOne produces the result for a single candidate. Workers write to
// disjoint slice indices, so no locking is needed.
func (p *Pipeline) reconcileOne(ctx context.Context, index int, candidate *models.CandidateEvent, counterparts []models.CalendarEntry) models.ReconciliationResult {
	result := models.ReconciliationResult{
		CandidateIndex: index,
		Candidate:      *candidate,
	}

	if ctx.Err() != nil {
		result.Verdict = models.VerdictNoMatch
		result.Note = "run cancelled before this candidate was classified"
		return result
	}

	// Non-events never reach the classifier.
	if candidate.EventType == models.EventTypeNotAnEvent {
		result.Verdict = models.VerdictNoMatch
		result.Note = "candidate is not an event"
		return result
	}

	// Neither does a candidate with nothing to compare on.
	if !candidate.HasText() {
		result.Verdict = models.VerdictNoMatch
		result.Note = "candidate has no comparable text"
		return result
	}

	normalized := p.normalizeCandidate(candidate)
	result.Candidate = *normalized

	outcome := p.classifier.Classify(ctx, normalized, counterparts)
	result.Verdict = outcome.Verdict
	result.Note = outcome.Reason

	if outcome.Failed {
		if ctx.Err() != nil {
			result.Note = "run cancelled before this candidate was classified"
		} else {
			result.Note = outcome.FailureNote
		}
		return result
	}

	if outcome.Verdict == models.VerdictNoMatch {
		return result
	}

	matched := findEntry(counterparts, outcome.MatchedEntryID)
	result.MatchedEntryID = outcome.MatchedEntryID
	result.MatchedEntry = matched

	if outcome.Verdict == models.VerdictDuplicate || matched == nil {
		return result
	}

	// The oracle may return its own merged view of the event; diff against
	// that when present, the normalized candidate otherwise.
	proposal := normalized
	if outcome.Proposed != nil {
		proposal = p.normalizeCandidate(outcome.Proposed)
	}
	result.Diff = diff.Compute(matched, proposal)

	// An update that changes nothing is a duplicate.
	if outcome.Verdict == models.VerdictUpdate && len(result.Diff) == 0 {
		result.Verdict = models.VerdictDuplicate
		result.Diff = nil
	}

	return result
}

// normalizeCandidate canonicalizes the candidate's time window. A candidate
// without any start value is passed through; it can still match on text.
func (p *Pipeline) normalizeCandidate(candidate *models.CandidateEvent) *models.CandidateEvent {
	out := *candidate

	start, end, err := datetime.NormalizePeriod(candidate.Start, candidate.End)
	if err != nil {
		return &out
	}

	out.Start = start
	out.End = end
	return &out
}

func findEntry(entries []models.CalendarEntry, id string) *models.CalendarEntry {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
	}
	return nil
}
