package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Policy holds the login-guard limits.
type Policy struct {
	MaxLoginAttempts int           `validate:"gt=0"`
	AttemptWindow    time.Duration `validate:"gt=0"`
	LockoutDuration  time.Duration `validate:"gt=0"`
}

// DefaultPolicy matches the values the dashboards were built against.
func DefaultPolicy() Policy {
	return Policy{
		MaxLoginAttempts: 5,
		AttemptWindow:    15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}
}

// SecurityInfo is the security sub-record of a user row.
type SecurityInfo struct {
	FailedAttempts int
	LockedUntil    *time.Time
	IsDeactivated  bool
}

// Status is what checkRateLimitStatus reports back to the login screen.
type Status struct {
	IsBlocked         bool       `json:"isBlocked"`
	RemainingAttempts int        `json:"remainingAttempts"`
	BlockedUntil      *time.Time `json:"blockedUntil,omitempty"`
	Message           string     `json:"message,omitempty"`

	// Lock is set when this evaluation crossed the limit and the caller
	// must persist BlockedUntil as the user's lockedUntil.
	Lock bool `json:"-"`
}

// WindowStart is the earliest attempt timestamp that still counts.
func (p Policy) WindowStart(now time.Time) time.Time {
	return now.Add(-p.AttemptWindow)
}

// CountFrom is where failure counting starts for a user: the window start,
// or the last reset (successful login, admin unlock) when that is more recent.
func (p Policy) CountFrom(now time.Time, resetAt *time.Time) time.Time {
	start := p.WindowStart(now)
	if resetAt != nil && resetAt.After(start) {
		return *resetAt
	}
	return start
}

// Evaluate decides whether a login may proceed. recentFailures is the number
// of failed attempts logged for the email since p.CountFrom(now, resetAt).
//
// Order matters: a deactivated account is blocked outright, an active lock
// wins over the attempt count, and only then is the window counted.
func Evaluate(info SecurityInfo, recentFailures int, now time.Time, p Policy) Status {
	if info.IsDeactivated {
		return Status{
			IsBlocked:         true,
			RemainingAttempts: 0,
			Message:           "This account has been deactivated. Please contact support.",
		}
	}

	if info.LockedUntil != nil && info.LockedUntil.After(now) {
		until := *info.LockedUntil
		return Status{
			IsBlocked:         true,
			RemainingAttempts: 0,
			BlockedUntil:      &until,
			Message:           lockedMessage(until.Sub(now)),
		}
	}

	if recentFailures >= p.MaxLoginAttempts {
		until := now.Add(p.LockoutDuration)
		return Status{
			IsBlocked:         true,
			RemainingAttempts: 0,
			BlockedUntil:      &until,
			Message:           lockedMessage(p.LockoutDuration),
			Lock:              true,
		}
	}

	return Status{
		IsBlocked:         false,
		RemainingAttempts: p.MaxLoginAttempts - recentFailures,
	}
}

func lockedMessage(left time.Duration) string {
	minutes := int(math.Ceil(left.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many failed login attempts. Try again in %d minute(s).", minutes)
}
