package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/cryptox"
)

const credentialKey = "credential.passcode"

// CredentialStore keeps the passcode verifier. Values are sealed at rest.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// PasscodeAuthenticator stands in for platform biometrics on hosts without
// them: the user proves presence with a passcode whose Argon2id verifier is
// kept in the encrypted store.
type PasscodeAuthenticator struct {
	store CredentialStore
	read  func(prompt string) ([]byte, error)
}

// NewPasscodeAuthenticator uses read to collect the passcode for a prompt.
func NewPasscodeAuthenticator(store CredentialStore, read func(prompt string) ([]byte, error)) *PasscodeAuthenticator {
	return &PasscodeAuthenticator{store: store, read: read}
}

// Enroll stores the first verifier. It refuses to overwrite an existing
// one; use Replace once the current owner has been confirmed.
func (p *PasscodeAuthenticator) Enroll(ctx context.Context, passcode []byte) error {
	enrolled, err := p.Enrolled(ctx)
	if err != nil {
		return common.Classify("enroll", err)
	}
	if enrolled {
		return common.SecurityError("enroll", common.ErrAlreadyEnrolled)
	}
	return p.put(ctx, "enroll", passcode)
}

// Replace overwrites the verifier. The caller must have confirmed the
// current owner first.
func (p *PasscodeAuthenticator) Replace(ctx context.Context, passcode []byte) error {
	return p.put(ctx, "replace passcode", passcode)
}

func (p *PasscodeAuthenticator) Enrolled(ctx context.Context) (bool, error) {
	_, ok, err := p.store.Get(ctx, credentialKey)
	return ok, err
}

func (p *PasscodeAuthenticator) put(ctx context.Context, op string, passcode []byte) error {
	if len(passcode) < 4 {
		return common.ValidationError(op, errors.New("passcode must have at least 4 characters"))
	}
	salt := common.GenerateRandByteArray(16)
	verifier := cryptox.DeriveKey(passcode, salt)
	defer common.WipeByteArray(verifier)
	return p.store.Put(ctx, credentialKey, hex.EncodeToString(salt)+":"+hex.EncodeToString(verifier))
}

func (p *PasscodeAuthenticator) Availability(ctx context.Context) Availability {
	_, ok, err := p.store.Get(ctx, credentialKey)
	switch {
	case err != nil:
		return BiometricStatusUnknown
	case !ok:
		return BiometricNoneEnrolled
	default:
		return BiometricAvailable
	}
}

func (p *PasscodeAuthenticator) Authenticate(ctx context.Context, pr Prompt) BiometricResult {
	stored, ok, err := p.store.Get(ctx, credentialKey)
	if err != nil {
		return BiometricResult{Outcome: OutcomeError, Code: 1, Message: err.Error()}
	}
	if !ok {
		return BiometricResult{Outcome: OutcomeError, Code: 11, Message: BiometricNoneEnrolled.Message()}
	}
	salt, want, err := parseVerifier(stored)
	if err != nil {
		return BiometricResult{Outcome: OutcomeError, Code: 1, Message: err.Error()}
	}

	prompt := pr.Title
	if pr.Subtitle != "" {
		prompt += " (" + pr.Subtitle + ")"
	}
	passcode, err := p.read(prompt)
	if err != nil {
		return BiometricResult{Outcome: OutcomeError, Code: 5, Message: err.Error()}
	}
	got := cryptox.DeriveKey(passcode, salt)
	common.WipeByteArray(passcode)
	defer common.WipeByteArray(got)

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return BiometricResult{Outcome: OutcomeFailed, Message: "passcode not recognized"}
	}
	return BiometricResult{Outcome: OutcomeSuccess}
}

func parseVerifier(s string) (salt, verifier []byte, err error) {
	saltHex, verifierHex, found := strings.Cut(s, ":")
	if !found {
		return nil, nil, errors.New("malformed passcode verifier")
	}
	if salt, err = hex.DecodeString(saltHex); err != nil {
		return nil, nil, fmt.Errorf("malformed passcode verifier: %w", err)
	}
	if verifier, err = hex.DecodeString(verifierHex); err != nil {
		return nil, nil, fmt.Errorf("malformed passcode verifier: %w", err)
	}
	return salt, verifier, nil
}
