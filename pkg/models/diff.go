package models

// FieldChange records one proposed field update.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// FieldDiff maps field name to its proposed change. An empty diff means the
// counterpart already carries everything the candidate knows.
type FieldDiff map[string]FieldChange

// ReconciliationResult is the outcome for a single candidate. Exactly one
// result is produced per input candidate, in input order.
type ReconciliationResult struct {
	CandidateIndex int            `json:"candidate_index"`
	Candidate      CandidateEvent `json:"candidate"`
	Verdict        Verdict        `json:"verdict"`
	MatchedEntryID string         `json:"matched_entry_id,omitempty"`
	MatchedEntry   *CalendarEntry `json:"matched_entry,omitempty"`
	Diff           FieldDiff      `json:"diff,omitempty"`
	Note           string         `json:"note,omitempty"`
}
