package service

import (
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
)

// Lockout defaults: three strikes, thirty minutes out.
const (
	DefaultLockoutThreshold = 3
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy decides how failed logins affect a credential record. All
// methods are pure: they compute the fields to persist and the caller
// performs the write, which keeps the policy trivially unit-testable.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy fills in defaults for zero values.
func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return LockoutPolicy{Threshold: threshold, Duration: duration}
}

// IsLocked reports whether the account is locked at the given instant.
func (p LockoutPolicy) IsLocked(u domain.User, now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// OnFailedLogin increments the attempt counter and, when the new count
// reaches the threshold, sets the lock expiry. An existing lock is never
// shortened or cleared here.
func (p LockoutPolicy) OnFailedLogin(u domain.User, now time.Time) domain.LoginAttemptUpdate {
	upd := domain.LoginAttemptUpdate{
		FailedLoginAttempts: u.FailedLoginAttempts + 1,
		LockedUntil:         u.LockedUntil,
		UpdatedAt:           now,
	}
	if upd.FailedLoginAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		upd.LockedUntil = &until
	}
	return upd
}

// OnSuccessfulLogin resets the counters. The second return is false when the
// record is already clean and no write is needed.
func (p LockoutPolicy) OnSuccessfulLogin(u domain.User, now time.Time) (domain.LoginAttemptUpdate, bool) {
	if u.FailedLoginAttempts == 0 && u.LockedUntil == nil {
		return domain.LoginAttemptUpdate{}, false
	}
	return domain.LoginAttemptUpdate{
		FailedLoginAttempts: 0,
		LockedUntil:         nil,
		UpdatedAt:           now,
	}, true
}
