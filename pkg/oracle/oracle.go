// Package oracle defines the judgment contract for match classification and
// the Gemini-backed implementation. The engine only depends on the Oracle
// interface, so any backend that can answer the question can be swapped in.
package oracle

import (
	"context"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Judgment is the oracle's raw answer for one candidate. Verdict is the
// label as emitted; the classifier normalizes it and enforces the contract.
// Proposed, when present, is the oracle's merged view of the event; the diff
// engine prefers it over the raw candidate.
type Judgment struct {
	Verdict        string                 `json:"match_type"`
	MatchedEntryID string                 `json:"matched_event_id,omitempty"`
	Proposed       *models.CandidateEvent `json:"matched_event,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// Oracle answers whether a candidate corresponds to one of its counterpart
// entries. Implementations return an error for transport failures AND for
// unusable output; callers treat both as retryable.
type Oracle interface {
	Classify(ctx context.Context, candidate *models.CandidateEvent, counterparts []models.CalendarEntry) (*Judgment, error)
}
