package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestDailyBudgetEnforcesLimit(t *testing.T) {
	budget := NewDailyBudget(NewMemoryCounter(), Policy{DefaultLimit: 2, MemberLimit: 3}, testLogger())
	ctx := context.Background()

	d := budget.Allow(ctx, "user-1", false)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d = budget.Allow(ctx, "user-1", false)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d = budget.Allow(ctx, "user-1", false)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestDailyBudgetMemberLimit(t *testing.T) {
	budget := NewDailyBudget(NewMemoryCounter(), Policy{DefaultLimit: 1, MemberLimit: 2}, testLogger())
	ctx := context.Background()

	d := budget.Allow(ctx, "user-1", true)
	require.True(t, d.Allowed)
	assert.Equal(t, 2, d.Limit)

	d = budget.Allow(ctx, "user-1", true)
	assert.True(t, d.Allowed)

	d = budget.Allow(ctx, "user-1", true)
	assert.False(t, d.Allowed)
}

func TestDailyBudgetIsPerUser(t *testing.T) {
	budget := NewDailyBudget(NewMemoryCounter(), Policy{DefaultLimit: 1, MemberLimit: 1}, testLogger())
	ctx := context.Background()

	require.True(t, budget.Allow(ctx, "user-1", false).Allowed)
	assert.False(t, budget.Allow(ctx, "user-1", false).Allowed)

	assert.True(t, budget.Allow(ctx, "user-2", false).Allowed)
}

func TestDailyBudgetRollsOverAtMidnight(t *testing.T) {
	budget := NewDailyBudget(NewMemoryCounter(), Policy{DefaultLimit: 1, MemberLimit: 1}, testLogger())
	ctx := context.Background()

	day1 := time.Date(2025, 6, 14, 23, 59, 0, 0, time.UTC)
	budget.now = func() time.Time { return day1 }

	require.True(t, budget.Allow(ctx, "user-1", false).Allowed)
	require.False(t, budget.Allow(ctx, "user-1", false).Allowed)

	// One minute later it is a new day and a fresh budget.
	budget.now = func() time.Time { return day1.Add(time.Minute) }
	assert.True(t, budget.Allow(ctx, "user-1", false).Allowed)
}

type brokenCounter struct{}

func (brokenCounter) Incr(_ context.Context, _ string) (int64, error) {
	return 0, errors.New("store unavailable")
}

func (brokenCounter) Expire(_ context.Context, _ string, _ time.Duration) error {
	return errors.New("store unavailable")
}

func TestDailyBudgetAllowsOnStoreFailure(t *testing.T) {
	budget := NewDailyBudget(brokenCounter{}, DefaultPolicy(), testLogger())

	d := budget.Allow(context.Background(), "user-1", false)
	assert.True(t, d.Allowed)
}
