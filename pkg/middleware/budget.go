package middleware

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
)

// DailyBudget enforces the per-user daily run budget on the routes it wraps.
func DailyBudget(budget *ratelimit.DailyBudget) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			userID := context.GetUserID(ctx)
			if userID == "" {
				return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
			}

			decision := budget.Allow(ctx, userID, context.IsUserMember(ctx))

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				metrics.BudgetDeniedTotal.Inc()
				return httperror.NewHTTPError(http.StatusTooManyRequests, "daily reconciliation budget exhausted")
			}

			return next(c)
		}
	}
}
