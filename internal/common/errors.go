package common

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for the presentation layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindCrypto
	KindNetwork
	KindAuthentication
	KindSecurity
	KindDataNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindCrypto:
		return "crypto"
	case KindNetwork:
		return "network"
	case KindAuthentication:
		return "authentication"
	case KindSecurity:
		return "security"
	case KindDataNotFound:
		return "data_not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

var (
	// Crypto errors. Both are fatal to the operation and never retried.
	ErrKeyUnavailable     = errors.New("encryption key unavailable")
	ErrTamperedOrWrongKey = errors.New("ciphertext tampered or wrong key")

	// Network errors.
	ErrNoConnectivity = errors.New("no data available and no network connectivity")
	ErrUnavailable    = errors.New("server unavailable")
	ErrRateLimited    = errors.New("rate limited")

	// Authentication errors.
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidToken         = errors.New("invalid token")

	// Security errors.
	ErrLockedOut            = errors.New("too many failed attempts, locked out")
	ErrDeviceInsecure       = errors.New("device security level too low")
	ErrBiometricNotEnabled  = errors.New("biometric authentication not enabled")
	ErrBiometricUnavailable = errors.New("biometric authentication unavailable")
	ErrAlreadyEnrolled      = errors.New("passcode already enrolled")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	ErrValidation = errors.New("validation error")
)

// AppError attaches a Kind and the failing operation to an underlying error.
type AppError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Op: op, Err: err}
}

func CryptoError(op string, err error) error { return newError(KindCrypto, op, err) }

func NetworkError(op string, err error) error { return newError(KindNetwork, op, err) }

func AuthenticationError(op string, err error) error {
	return newError(KindAuthentication, op, err)
}

func SecurityError(op string, err error) error { return newError(KindSecurity, op, err) }

func DataNotFoundError(op string, err error) error {
	return newError(KindDataNotFound, op, err)
}

func ValidationError(op string, err error) error { return newError(KindValidation, op, err) }

func UnknownError(op string, err error) error { return newError(KindUnknown, op, err) }

// KindOf reports the Kind of err. Errors carrying an AppError keep their
// kind, bare sentinels are classified, everything else is unknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, ErrKeyUnavailable), errors.Is(err, ErrTamperedOrWrongKey):
		return KindCrypto
	case errors.Is(err, ErrNoConnectivity), errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrRateLimited), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrInvalidToken):
		return KindAuthentication
	case errors.Is(err, ErrLockedOut), errors.Is(err, ErrDeviceInsecure),
		errors.Is(err, ErrBiometricNotEnabled), errors.Is(err, ErrBiometricUnavailable),
		errors.Is(err, ErrAlreadyEnrolled):
		return KindSecurity
	case errors.Is(err, ErrNotFound):
		return KindDataNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	}
	return KindUnknown
}

// Classify returns err wrapped in an AppError of its kind, leaving errors
// that already carry one untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	return newError(KindOf(err), op, err)
}

// IsCrypto reports whether err is an integrity or key failure.
func IsCrypto(err error) bool { return KindOf(err) == KindCrypto }

// IsRetryable reports whether err is a transient network failure worth
// another attempt. Rate limiting is not retried.
func IsRetryable(err error) bool {
	if KindOf(err) != KindNetwork {
		return false
	}
	return !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrNoConnectivity)
}
