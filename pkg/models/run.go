package models

import (
	"encoding/json"
	"time"
)

// Run statuses for stored reconciliation runs.
const (
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
)

// Review statuses for stored possible_update results.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Run is a stored reconciliation run.
type Run struct {
	ID             string    `json:"id" db:"id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Status         string    `json:"status" db:"status"`
	CandidateCount int       `json:"candidate_count" db:"candidate_count"`
	EntryCount     int       `json:"entry_count" db:"entry_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
}

// RunResult is a stored per-candidate result.
type RunResult struct {
	ID             string          `json:"id" db:"id"`
	RunID          string          `json:"run_id" db:"run_id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	CandidateIndex int             `json:"candidate_index" db:"candidate_index"`
	Verdict        Verdict         `json:"verdict" db:"verdict"`
	MatchedEntryID *string         `json:"matched_entry_id,omitempty" db:"matched_entry_id"`
	Candidate      json.RawMessage `json:"candidate" db:"candidate"`
	Diff           json.RawMessage `json:"diff,omitempty" db:"diff"`
	Note           *string         `json:"note,omitempty" db:"note"`
	ReviewStatus   *string         `json:"review_status,omitempty" db:"review_status"`
	ReviewedBy     *string         `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// ReconcileRequest is the POST /v1/reconcile body.
type ReconcileRequest struct {
	Candidates []CandidateEvent `json:"candidates" validate:"required,min=1,max=50,dive"`
	Entries    []CalendarEntry  `json:"entries" validate:"max=500,dive"`
}

// ReconcileResponse is the POST /v1/reconcile response body.
type ReconcileResponse struct {
	RunID     string                 `json:"run_id"`
	Status    string                 `json:"status"`
	Results   []ReconciliationResult `json:"results"`
	Cancelled bool                   `json:"cancelled,omitempty"`
}

// RunResultListResponse lists stored results for a run.
type RunResultListResponse struct {
	Items      []RunResult `json:"items"`
	TotalCount int         `json:"total_count"`
}
