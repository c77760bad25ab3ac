// Package run persists reconciliation runs and their per-candidate results
// so possible updates can be reviewed after the fact. Reconciliation itself
// never reads this data back; it is presentation and audit state only.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository handles run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateRun stores a completed run and its results in one transaction.
func (r *Repository) CreateRun(ctx context.Context, run *models.Run, results []models.ReconciliationResult) (*models.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.CreateRun")
	defer span.End()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = now
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store run")
	}
	defer tx.Rollback(ctx)

	sb := database.NewInsertBuilder()
	sb.InsertInto("reconciliation_runs")
	sb.Cols("id", "tenant_id", "user_id", "status", "candidate_count", "entry_count", "created_at", "completed_at")
	sb.Values(run.ID, run.TenantID, run.UserID, run.Status, run.CandidateCount, run.EntryCount, run.CreatedAt, run.CompletedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": run.ID}).Error("Failed to insert run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store run")
	}

	if len(results) > 0 {
		ib := database.NewInsertBuilder()
		ib.InsertInto("reconciliation_results")
		ib.Cols("id", "run_id", "tenant_id", "candidate_index", "verdict", "matched_entry_id", "candidate", "diff", "note", "review_status", "created_at")

		for i := range results {
			res := &results[i]

			candidateJSON, err := json.Marshal(res.Candidate)
			if err != nil {
				return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to encode candidate %d", res.CandidateIndex)
			}

			var diffJSON any
			if len(res.Diff) > 0 {
				diffJSON = database.JSONB[models.FieldDiff]{Data: res.Diff}
			}

			var matchedID any
			if res.MatchedEntryID != "" {
				matchedID = res.MatchedEntryID
			}

			var note any
			if res.Note != "" {
				note = res.Note
			}

			// Only ambiguous results enter the review queue.
			var reviewStatus any
			if res.Verdict == models.VerdictPossibleUpdate {
				reviewStatus = models.ReviewStatusPending
			}

			ib.Values(uuid.New().String(), run.ID, run.TenantID, res.CandidateIndex, res.Verdict, matchedID, candidateJSON, diffJSON, note, reviewStatus, now)
		}

		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": run.ID}).Error("Failed to insert run results")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store run results")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store run")
	}

	return run, nil
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(ctx context.Context, tenantID string, id string) (*models.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.GetRun")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "tenant_id", "user_id", "status", "candidate_count", "entry_count", "created_at", "completed_at")
	sb.From("reconciliation_runs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var run models.Run
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get run")
	}

	return &run, nil
}

// ListResults retrieves the stored results of a run in candidate order.
func (r *Repository) ListResults(ctx context.Context, tenantID string, runID string) ([]models.RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.ListResults")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "run_id", "tenant_id", "candidate_index", "verdict", "matched_entry_id", "candidate", "diff", "note", "review_status", "reviewed_by", "reviewed_at", "created_at")
	sb.From("reconciliation_results")
	sb.Where(
		sb.Equal("run_id", runID),
		sb.Equal("tenant_id", tenantID),
	)
	sb.OrderBy("candidate_index ASC")

	query, args := sb.Build()
	var results []models.RunResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list run results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list run results")
	}

	return results, nil
}

// ListPendingReviews retrieves possible_update results awaiting review.
func (r *Repository) ListPendingReviews(ctx context.Context, tenantID string, limit int) ([]models.RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.ListPendingReviews")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "run_id", "tenant_id", "candidate_index", "verdict", "matched_entry_id", "candidate", "diff", "note", "review_status", "reviewed_by", "reviewed_at", "created_at")
	sb.From("reconciliation_results")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("review_status", models.ReviewStatusPending),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var results []models.RunResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending reviews")
	}

	return results, nil
}

// Review records a review decision on a possible_update result. Only pending
// results can transition.
func (r *Repository) Review(ctx context.Context, tenantID string, resultID string, status string, reviewedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.Review")
	defer span.End()

	now := time.Now().UTC()
	sb := database.NewUpdateBuilder()
	sb.Update("reconciliation_results")
	sb.Set(
		sb.Assign("review_status", status),
		sb.Assign("reviewed_by", reviewedBy),
		sb.Assign("reviewed_at", now),
	)
	sb.Where(
		sb.Equal("id", resultID),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("review_status", models.ReviewStatusPending),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to review result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to review result")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no pending review for result %s", resultID))
	}

	return nil
}
