package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

func TestEvaluate(t *testing.T) {
	p := DefaultPolicy()
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name          string
		info          SecurityInfo
		failures      int
		wantBlocked   bool
		wantRemaining int
		wantLock      bool
	}{
		{"fresh_user", SecurityInfo{}, 0, false, 5, false},
		{"two_failures", SecurityInfo{}, 2, false, 3, false},
		{"four_failures", SecurityInfo{}, 4, false, 1, false},
		{"five_failures_locks", SecurityInfo{}, 5, true, 0, true},
		{"over_limit_locks", SecurityInfo{}, 9, true, 0, true},
		{"active_lock", SecurityInfo{LockedUntil: &future}, 0, true, 0, false},
		{"expired_lock_counts_window", SecurityInfo{LockedUntil: &past}, 1, false, 4, false},
		{"deactivated", SecurityInfo{IsDeactivated: true, LockedUntil: &future}, 0, true, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := Evaluate(tc.info, tc.failures, now, p)
			assert.Equal(t, tc.wantBlocked, st.IsBlocked)
			assert.Equal(t, tc.wantRemaining, st.RemainingAttempts)
			assert.Equal(t, tc.wantLock, st.Lock)
			if tc.wantBlocked {
				assert.NotEmpty(t, st.Message)
			}
		})
	}
}

func TestEvaluate_LockoutSetsBlockedUntil(t *testing.T) {
	st := Evaluate(SecurityInfo{}, 5, now, DefaultPolicy())

	require.NotNil(t, st.BlockedUntil)
	assert.True(t, st.BlockedUntil.After(now))
	assert.Equal(t, now.Add(30*time.Minute), *st.BlockedUntil)
	assert.Contains(t, st.Message, "30 minute")
}

func TestEvaluate_ActiveLockReportsRemainingTime(t *testing.T) {
	until := now.Add(90 * time.Second)
	st := Evaluate(SecurityInfo{LockedUntil: &until}, 0, now, DefaultPolicy())

	assert.Equal(t, &until, st.BlockedUntil)
	assert.Contains(t, st.Message, "2 minute")
}

func TestEvaluate_DeactivatedHasNoBlockedUntil(t *testing.T) {
	st := Evaluate(SecurityInfo{IsDeactivated: true}, 0, now, DefaultPolicy())
	assert.Nil(t, st.BlockedUntil)
	assert.Contains(t, st.Message, "deactivated")
}

func TestPolicy_WindowStart(t *testing.T) {
	p := Policy{MaxLoginAttempts: 3, AttemptWindow: 5 * time.Minute, LockoutDuration: time.Minute}
	assert.Equal(t, now.Add(-5*time.Minute), p.WindowStart(now))
}

func TestPolicy_CountFrom(t *testing.T) {
	p := DefaultPolicy()
	recent := now.Add(-2 * time.Minute)
	old := now.Add(-time.Hour)

	assert.Equal(t, p.WindowStart(now), p.CountFrom(now, nil))
	assert.Equal(t, p.WindowStart(now), p.CountFrom(now, &old))
	assert.Equal(t, recent, p.CountFrom(now, &recent))
}
