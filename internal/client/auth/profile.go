package auth

import (
	"context"
	"time"
)

// Profile is the persisted authentication state.
type Profile struct {
	BiometricEnabled bool
	LastAuthTime     time.Time
	FailedAttempts   int
	// LockoutUntil is zero when no lockout was ever set.
	LockoutUntil time.Time
}

func (p Profile) lockedAt(now time.Time) bool {
	return !p.LockoutUntil.IsZero() && now.Before(p.LockoutUntil)
}

// ProfileStore persists a Profile. Implementations must write all fields
// atomically and keep them encrypted at rest.
type ProfileStore interface {
	Load(ctx context.Context) (Profile, error)
	Save(ctx context.Context, p Profile) error
	Clear(ctx context.Context) error
}
