// Package classifier orchestrates oracle calls for match classification:
// retries with linear backoff, verdict normalization, and downgrade to
// no_match when the oracle never produces a usable answer.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Config contains configuration for the classifier.
type Config struct {
	MaxAttempts    int           // Attempts per candidate (default: 3)
	RetryBaseDelay time.Duration // Wait after attempt n is n times this (default: 1s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		RetryBaseDelay: time.Second,
	}
}

// Outcome is the classifier's answer for one candidate. A Failed outcome
// carries verdict no_match: an oracle that never answered must not block the
// rest of the run.
type Outcome struct {
	Verdict        models.Verdict
	MatchedEntryID string
	Proposed       *models.CandidateEvent // oracle's merged view, may be nil
	Reason         string
	Failed         bool
	FailureNote    string
}

// Service classifies candidates against their counterpart sets.
type Service struct {
	log    ectologger.Logger
	oracle oracle.Oracle
	cfg    Config

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewService creates a classifier service.
func NewService(log ectologger.Logger, o oracle.Oracle, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &Service{
		log:    log,
		oracle: o,
		cfg:    cfg,
		sleep:  sleepCtx,
	}
}

// Classify asks the oracle about one candidate. An empty counterpart set is
// answered locally: there is nothing to compare against, so the verdict is
// no_match without spending an oracle call.
//
// Transport errors, malformed output, and unrecognized verdict labels are all
// retried the same way: the wait after attempt n is n times the base delay.
// When every attempt fails the candidate is downgraded to no_match with the
// failure reported in the outcome; one stubborn candidate never affects the
// others.
func (s *Service) Classify(ctx context.Context, candidate *models.CandidateEvent, counterparts []models.CalendarEntry) Outcome {
	ctx, span := tracing.StartSpan(ctx, "classifier.Service.Classify")
	defer span.End()

	if len(counterparts) == 0 {
		return Outcome{Verdict: models.VerdictNoMatch}
	}

	log := s.log.WithContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		judgment, err := s.oracle.Classify(ctx, candidate, counterparts)
		if err == nil {
			outcome, vErr := s.validate(judgment, counterparts)
			if vErr == nil {
				metrics.RecordOracleAttempt("ok")
				return outcome
			}
			err = vErr
		}

		metrics.RecordOracleAttempt("retry")
		lastErr = err
		log.WithError(err).WithFields(map[string]any{"attempt": attempt}).Warn("Oracle classification attempt failed")

		if attempt < s.cfg.MaxAttempts {
			s.sleep(ctx, time.Duration(attempt)*s.cfg.RetryBaseDelay)
		}
	}

	metrics.RecordOracleAttempt("exhausted")
	log.WithError(lastErr).Error("Oracle classification exhausted retries; downgrading to no_match")

	return Outcome{
		Verdict:     models.VerdictNoMatch,
		Failed:      true,
		FailureNote: fmt.Sprintf("classification failed after %d attempts: %v", s.cfg.MaxAttempts, lastErr),
	}
}

// validate enforces the oracle contract: a recognized verdict label, and a
// matched entry that actually exists in the counterpart set whenever the
// verdict claims a match. Violations are retryable like any other failure.
func (s *Service) validate(judgment *oracle.Judgment, counterparts []models.CalendarEntry) (Outcome, error) {
	verdict, ok := models.NormalizeVerdict(judgment.Verdict)
	if !ok {
		return Outcome{}, fmt.Errorf("unrecognized verdict label %q", judgment.Verdict)
	}

	if verdict == models.VerdictNoMatch {
		return Outcome{Verdict: verdict, Reason: judgment.Reason}, nil
	}

	for i := range counterparts {
		if counterparts[i].ID == judgment.MatchedEntryID {
			return Outcome{
				Verdict:        verdict,
				MatchedEntryID: judgment.MatchedEntryID,
				Proposed:       judgment.Proposed,
				Reason:         judgment.Reason,
			}, nil
		}
	}

	return Outcome{}, fmt.Errorf("verdict %q references unknown entry %q", verdict, judgment.MatchedEntryID)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
