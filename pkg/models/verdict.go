package models

import "strings"

// Verdict is the outcome of reconciling one candidate against the calendar.
type Verdict string

const (
	// VerdictNoMatch means no calendar entry corresponds to the candidate.
	VerdictNoMatch Verdict = "no_match"
	// VerdictDuplicate means a counterpart exists and carries no new information.
	VerdictDuplicate Verdict = "duplicate"
	// VerdictUpdate means a counterpart exists and the candidate adds or
	// changes at least one field.
	VerdictUpdate Verdict = "update"
	// VerdictPossibleUpdate means a counterpart probably exists but the call
	// is ambiguous and needs human review.
	VerdictPossibleUpdate Verdict = "possible_update"
)

// verdictAliases maps labels the oracle has been observed to emit onto the
// canonical set. Keys are lowercased with separators collapsed to '_'.
var verdictAliases = map[string]Verdict{
	"no_match":            VerdictNoMatch,
	"no_counterpart":      VerdictNoMatch,
	"none":                VerdictNoMatch,
	"duplicate":           VerdictDuplicate,
	"duplicate_no_change": VerdictDuplicate,
	"exact_match":         VerdictDuplicate,
	"update":              VerdictUpdate,
	"certain_update":      VerdictUpdate,
	"possible_update":     VerdictPossibleUpdate,
	"possible_match":      VerdictPossibleUpdate,
}

// NormalizeVerdict maps a raw oracle label onto the canonical verdict set.
// Matching is case-insensitive and tolerant of space/hyphen separators.
// ok is false when the label is not recognized; callers treat that as a
// contract violation, not a panic.
func NormalizeVerdict(raw string) (Verdict, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	v, ok := verdictAliases[key]
	return v, ok
}
