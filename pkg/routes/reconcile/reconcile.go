// Package reconcile exposes the reconciliation run endpoint.
package reconcile

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxutil "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/reconcile"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// RunStore is the slice of run persistence the handler needs.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.Run, results []models.ReconciliationResult) (*models.Run, error)
}

// Emitter publishes run lifecycle events.
type Emitter interface {
	EmitRunCompleted(ctx context.Context, run *models.Run, results []models.ReconciliationResult) error
	EmitUpdatesProposed(ctx context.Context, run *models.Run, results []models.ReconciliationResult) error
}

// Handler handles reconciliation run requests
type Handler struct {
	logger   ectologger.Logger
	validate *validator.Validate
	pipeline *reconcile.Pipeline
	repo     RunStore
	emitter  Emitter
}

// NewHandler creates a new reconcile handler
func NewHandler(logger ectologger.Logger, pipeline *reconcile.Pipeline, repo RunStore, emitter Emitter) *Handler {
	return &Handler{
		logger:   logger,
		validate: validator.New(),
		pipeline: pipeline,
		repo:     repo,
		emitter:  emitter,
	}
}

// RegisterRoutes registers the reconcile endpoint. budgetMiddleware guards it
// with the per-user daily budget.
func (h *Handler) RegisterRoutes(e *echo.Echo, budgetMiddleware echo.MiddlewareFunc) {
	e.POST("/api/v1/reconcile", h.Reconcile, budgetMiddleware)
}

// Reconcile runs a reconciliation batch and stores the result.
func (h *Handler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconcile.Handler.Reconcile")
	defer span.End()

	tenantID := ctxutil.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	results, cancelled := h.pipeline.Run(ctx, req.Candidates, req.Entries)

	status := models.RunStatusCompleted
	if cancelled {
		status = models.RunStatusCancelled
	}
	metrics.RecordRun(status, time.Since(start))
	for i := range results {
		metrics.RecordVerdict(string(results[i].Verdict))
	}

	run := &models.Run{
		TenantID:       tenantID,
		UserID:         userID,
		Status:         status,
		CandidateCount: len(req.Candidates),
		EntryCount:     len(req.Entries),
	}

	run, err := h.repo.CreateRun(ctx, run, results)
	if err != nil {
		return err
	}

	// Event emission is best-effort; the run already succeeded.
	if h.emitter != nil {
		if err := h.emitter.EmitRunCompleted(ctx, run, results); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Run completed but event emission failed")
		}
		if err := h.emitter.EmitUpdatesProposed(ctx, run, results); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Run completed but update event emission failed")
		}
	}

	return c.JSON(http.StatusOK, models.ReconcileResponse{
		RunID:     run.ID,
		Status:    status,
		Results:   results,
		Cancelled: cancelled,
	})
}
