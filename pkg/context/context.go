// Package context carries the per-request identity sage trusts from its
// gateway: tenant, user, the member flag, and the request id.
package context

import "context"

type ContextKey string

var (
	RequestIDKey  = ContextKey("X-Request-Id")
	TenantIDKey   = ContextKey("X-Tenant-Id")
	UserIDKey     = ContextKey("X-User-Id")
	UserMemberKey = ContextKey("X-User-Member")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) string {
	value, ok := ctx.Value(TenantIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	value, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// SetUserMember records whether the caller is a linked member account.
// Member accounts get the higher daily reconciliation budget.
func SetUserMember(ctx context.Context, member bool) context.Context {
	return context.WithValue(ctx, UserMemberKey, member)
}

func IsUserMember(ctx context.Context) bool {
	value, ok := ctx.Value(UserMemberKey).(bool)
	if !ok {
		return false
	}
	return value
}
