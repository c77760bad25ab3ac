// Package ratelimit enforces the daily reconciliation budget. The budget is
// a policy object injected at the service edge; the engine itself never
// consults it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Counter is the backing store for day-scoped counters. The Redis client
// wrapper satisfies it; an in-memory implementation backs tests and
// single-node deployments.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// Policy holds the per-day call limits.
type Policy struct {
	DefaultLimit int // Runs per day for ordinary users (default: 5)
	MemberLimit  int // Runs per day for linked member profiles (default: 10)
}

// DefaultPolicy returns the stock limits.
func DefaultPolicy() Policy {
	return Policy{
		DefaultLimit: 5,
		MemberLimit:  10,
	}
}

// Decision is the outcome of one budget check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// DailyBudget counts reconciliation runs per user per UTC day. The counter
// key embeds the day, so the budget rolls over at midnight without any reset
// bookkeeping.
type DailyBudget struct {
	counter Counter
	policy  Policy
	logger  ectologger.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewDailyBudget creates a daily budget over the given counter store.
func NewDailyBudget(counter Counter, policy Policy, logger ectologger.Logger) *DailyBudget {
	if policy.DefaultLimit <= 0 {
		policy.DefaultLimit = 5
	}
	if policy.MemberLimit <= 0 {
		policy.MemberLimit = 10
	}
	return &DailyBudget{
		counter: counter,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow consumes one run from the user's budget for today. On store failure
// the run is allowed: a broken counter must not take the service down.
func (b *DailyBudget) Allow(ctx context.Context, userID string, member bool) Decision {
	limit := b.policy.DefaultLimit
	if member {
		limit = b.policy.MemberLimit
	}

	key := b.key(userID)

	count, err := b.counter.Incr(ctx, key)
	if err != nil {
		b.logger.WithContext(ctx).WithError(err).Warn("Budget counter unavailable; allowing request")
		return Decision{Allowed: true, Limit: limit, Remaining: limit}
	}

	if count == 1 {
		// Keys outlive their day slightly so a clock skewed reader still
		// sees them; correctness comes from the day in the key.
		if err := b.counter.Expire(ctx, key, 48*time.Hour); err != nil {
			b.logger.WithContext(ctx).WithError(err).Warn("Failed to set budget key expiration")
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
	}
}

// key scopes the counter to user and UTC day.
func (b *DailyBudget) key(userID string) string {
	day := b.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("sage:budget:%s:%s", userID, day)
}
