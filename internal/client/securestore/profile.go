package securestore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/client/auth"
)

const (
	keyBiometricEnabled = "auth.biometric_enabled"
	keyLastAuthTime     = "auth.last_auth_time"
	keyFailedAttempts   = "auth.failed_attempts"
	keyLockoutTime      = "auth.lockout_time"

	authPrefix = "auth."
)

// ProfileStore persists the authentication profile as sealed entries.
type ProfileStore struct {
	s *Store
}

var _ auth.ProfileStore = (*ProfileStore)(nil)

func NewProfileStore(s *Store) *ProfileStore {
	return &ProfileStore{s: s}
}

func (p *ProfileStore) Load(ctx context.Context) (auth.Profile, error) {
	var prof auth.Profile
	err := p.s.View(ctx, func(r *Reader) error {
		var err error
		if prof.BiometricEnabled, err = r.Bool(keyBiometricEnabled); err != nil {
			return err
		}
		if prof.LastAuthTime, err = r.Time(keyLastAuthTime); err != nil {
			return err
		}
		if prof.FailedAttempts, err = r.Int(keyFailedAttempts); err != nil {
			return err
		}
		prof.LockoutUntil, err = r.Time(keyLockoutTime)
		return err
	})
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to load auth profile: %w", err)
	}
	return prof, nil
}

// Save writes every field in one transaction.
func (p *ProfileStore) Save(ctx context.Context, prof auth.Profile) error {
	err := p.s.Update(ctx, func(w *Writer) error {
		if err := w.PutBool(keyBiometricEnabled, prof.BiometricEnabled); err != nil {
			return err
		}
		if err := w.PutTime(keyLastAuthTime, prof.LastAuthTime); err != nil {
			return err
		}
		if err := w.PutInt(keyFailedAttempts, prof.FailedAttempts); err != nil {
			return err
		}
		return w.PutTime(keyLockoutTime, prof.LockoutUntil)
	})
	if err != nil {
		return fmt.Errorf("failed to save auth profile: %w", err)
	}
	return nil
}

func (p *ProfileStore) Clear(ctx context.Context) error {
	return p.s.RemovePrefix(ctx, authPrefix)
}
