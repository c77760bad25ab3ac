// Package run exposes stored runs and the possible_update review flow.
package run

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	ctxutil "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// RunStore is the slice of run persistence the handler needs.
type RunStore interface {
	GetRun(ctx context.Context, tenantID string, id string) (*models.Run, error)
	ListResults(ctx context.Context, tenantID string, runID string) ([]models.RunResult, error)
	ListPendingReviews(ctx context.Context, tenantID string, limit int) ([]models.RunResult, error)
	Review(ctx context.Context, tenantID string, resultID string, status string, reviewedBy *string) error
}

// Emitter publishes review decision events. May be nil.
type Emitter interface {
	EmitResultReviewed(ctx context.Context, tenantID string, resultID string, reviewStatus string, reviewedBy string) error
}

// Handler handles run retrieval and review requests
type Handler struct {
	logger  ectologger.Logger
	repo    RunStore
	emitter Emitter
}

// NewHandler creates a new run handler
func NewHandler(logger ectologger.Logger, repo RunStore, emitter Emitter) *Handler {
	return &Handler{
		logger:  logger,
		repo:    repo,
		emitter: emitter,
	}
}

// RegisterRoutes registers run endpoints
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/runs/:id", h.GetRun)
	e.GET("/api/v1/runs/:id/results", h.ListResults)
	e.GET("/api/v1/reviews/pending", h.ListPendingReviews)
	e.POST("/api/v1/results/:id/approve", h.ApproveResult)
	e.POST("/api/v1/results/:id/reject", h.RejectResult)
}

// GetRun retrieves a stored run by ID
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "run.Handler.GetRun")
	defer span.End()

	tenantID := ctxutil.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "run id is required")
	}

	run, err := h.repo.GetRun(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, run)
}

// ListResults retrieves the stored results of a run
func (h *Handler) ListResults(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "run.Handler.ListResults")
	defer span.End()

	tenantID := ctxutil.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "run id is required")
	}

	// 404 when the run itself is unknown, not an empty list.
	if _, err := h.repo.GetRun(ctx, tenantID, id); err != nil {
		return err
	}

	results, err := h.repo.ListResults(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RunResultListResponse{
		Items:      results,
		TotalCount: len(results),
	})
}

// ListPendingReviews retrieves possible_update results awaiting review
func (h *Handler) ListPendingReviews(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "run.Handler.ListPendingReviews")
	defer span.End()

	tenantID := ctxutil.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	results, err := h.repo.ListPendingReviews(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RunResultListResponse{
		Items:      results,
		TotalCount: len(results),
	})
}

// ApproveResult approves a pending possible_update result
func (h *Handler) ApproveResult(c echo.Context) error {
	return h.review(c, models.ReviewStatusApproved)
}

// RejectResult rejects a pending possible_update result
func (h *Handler) RejectResult(c echo.Context) error {
	return h.review(c, models.ReviewStatusRejected)
}

func (h *Handler) review(c echo.Context, status string) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "run.Handler.review")
	defer span.End()

	tenantID := ctxutil.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "result id is required")
	}

	var reviewedBy *string
	if userID := ctxutil.GetUserID(ctx); userID != "" {
		reviewedBy = &userID
	}

	if err := h.repo.Review(ctx, tenantID, id, status, reviewedBy); err != nil {
		return err
	}

	if h.emitter != nil {
		by := ""
		if reviewedBy != nil {
			by = *reviewedBy
		}
		if err := h.emitter.EmitResultReviewed(ctx, tenantID, id, status, by); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Review recorded but event emission failed")
		}
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"result_id": id,
		"status":    status,
	}).Info("Recorded review decision")

	return c.JSON(http.StatusOK, map[string]string{
		"id":            id,
		"review_status": status,
	})
}
