package middleware

import (
	"github.com/Ramsey-B/sage/pkg/context"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderTenantID is the header key for tenant ID
	HeaderTenantID = "X-Tenant-ID"
	// HeaderUserID is the header key for user ID
	HeaderUserID = "X-User-ID"
	// HeaderUserMember marks the caller as a linked member account. Trusted
	// the same way the identity headers are; authentication lives upstream.
	HeaderUserMember = "X-User-Member"
)

// Context copies the trusted identity headers onto the request context so
// handlers, the budget middleware, and the error handler all read the same
// values.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetTenantID(ctx, req.Header.Get(HeaderTenantID))
			ctx = context.SetUserID(ctx, req.Header.Get(HeaderUserID))
			ctx = context.SetUserMember(ctx, req.Header.Get(HeaderUserMember) == "true")

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
