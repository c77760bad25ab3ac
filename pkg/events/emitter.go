// Package events handles event emission for reconciliation run lifecycle
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Sage
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRunCompleted emits a reconciliation.completed event with the verdict
// tally for the run.
func (e *Emitter) EmitRunCompleted(ctx context.Context, run *models.Run, results []models.ReconciliationResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	tally := map[models.Verdict]int{}
	for i := range results {
		tally[results[i].Verdict]++
	}

	payload := RunCompletedEvent{
		BaseEvent:      NewBaseEvent(EventTypeRunCompleted, run.TenantID, run.UserID),
		RunID:          run.ID,
		Status:         run.Status,
		CandidateCount: run.CandidateCount,
		EntryCount:     run.EntryCount,
		Verdicts:       tally,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ReconciliationEvent{
		EventType: string(EventTypeRunCompleted),
		TenantID:  run.TenantID,
		UserID:    run.UserID,
		RunID:     run.ID,
		Data:      data,
	}

	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reconciliation.completed event")
		return err
	}

	return nil
}

// EmitUpdatesProposed emits a reconciliation.update_proposed event for each
// result that changes or might change an existing entry.
func (e *Emitter) EmitUpdatesProposed(ctx context.Context, run *models.Run, results []models.ReconciliationResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitUpdatesProposed")
	defer span.End()

	var events []*kafka.ReconciliationEvent
	for i := range results {
		res := &results[i]
		if res.Verdict != models.VerdictUpdate && res.Verdict != models.VerdictPossibleUpdate {
			continue
		}

		payload := UpdateProposedEvent{
			BaseEvent:      NewBaseEvent(EventTypeUpdateProposed, run.TenantID, run.UserID),
			RunID:          run.ID,
			CandidateIndex: res.CandidateIndex,
			Verdict:        res.Verdict,
			MatchedEntryID: res.MatchedEntryID,
			Diff:           res.Diff,
		}
		data, _ := json.Marshal(payload)

		events = append(events, &kafka.ReconciliationEvent{
			EventType: string(EventTypeUpdateProposed),
			TenantID:  run.TenantID,
			UserID:    run.UserID,
			RunID:     run.ID,
			Verdict:   string(res.Verdict),
			Data:      data,
		})
	}

	if len(events) == 0 {
		return nil
	}

	if err := e.producer.PublishReconciliationEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reconciliation.update_proposed events")
		return err
	}

	return nil
}

// EmitResultReviewed emits an approval or rejection decision for a
// possible_update result.
func (e *Emitter) EmitResultReviewed(ctx context.Context, tenantID string, resultID string, reviewStatus string, reviewedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResultReviewed")
	defer span.End()

	eventType := EventTypeResultApproved
	if reviewStatus == models.ReviewStatusRejected {
		eventType = EventTypeResultRejected
	}

	payload := ResultReviewedEvent{
		BaseEvent:    NewBaseEvent(eventType, tenantID, reviewedBy),
		ResultID:     resultID,
		ReviewStatus: reviewStatus,
		ReviewedBy:   reviewedBy,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ReconciliationEvent{
		EventType: string(eventType),
		TenantID:  tenantID,
		UserID:    reviewedBy,
		RunID:     resultID,
		Data:      data,
	}

	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review event")
		return err
	}

	return nil
}
