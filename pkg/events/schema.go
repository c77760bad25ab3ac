package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Run events
	EventTypeRunCompleted EventType = "reconciliation.completed"

	// Result events
	EventTypeUpdateProposed EventType = "reconciliation.update_proposed"
	EventTypeResultApproved EventType = "reconciliation.result_approved"
	EventTypeResultRejected EventType = "reconciliation.result_rejected"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RunCompletedEvent is emitted when a reconciliation run finishes
type RunCompletedEvent struct {
	BaseEvent
	RunID          string                 `json:"run_id"`
	Status         string                 `json:"status"`
	CandidateCount int                    `json:"candidate_count"`
	EntryCount     int                    `json:"entry_count"`
	Verdicts       map[models.Verdict]int `json:"verdicts"`
}

// UpdateProposedEvent is emitted for each result that changes or might change
// an existing calendar entry
type UpdateProposedEvent struct {
	BaseEvent
	RunID          string           `json:"run_id"`
	CandidateIndex int              `json:"candidate_index"`
	Verdict        models.Verdict   `json:"verdict"`
	MatchedEntryID string           `json:"matched_entry_id"`
	Diff           models.FieldDiff `json:"diff,omitempty"`
}

// ResultReviewedEvent is emitted when a pending possible_update is approved
// or rejected
type ResultReviewedEvent struct {
	BaseEvent
	ResultID     string `json:"result_id"`
	ReviewStatus string `json:"review_status"`
	ReviewedBy   string `json:"reviewed_by,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string, userID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
