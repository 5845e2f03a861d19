package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"tampered sentinel", ErrTamperedOrWrongKey, KindCrypto},
		{"wrapped key unavailable", fmt.Errorf("seal: %w", ErrKeyUnavailable), KindCrypto},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"no connectivity", ErrNoConnectivity, KindNetwork},
		{"locked out", ErrLockedOut, KindSecurity},
		{"already enrolled", ErrAlreadyEnrolled, KindSecurity},
		{"not authenticated", ErrNotAuthenticated, KindAuthentication},
		{"not found", ErrNotFound, KindDataNotFound},
		{"explicit kind wins", NetworkError("fetch", ErrNotFound), KindNetwork},
		{"plain error", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAppError_UnwrapAndMessage(t *testing.T) {
	err := CryptoError("open", ErrTamperedOrWrongKey)

	assert.ErrorIs(t, err, ErrTamperedOrWrongKey)
	assert.Equal(t, "open: crypto error: ciphertext tampered or wrong key", err.Error())
	assert.True(t, IsCrypto(err))
	assert.Nil(t, CryptoError("open", nil))
}

func TestClassify(t *testing.T) {
	err := Classify("load", ErrUnavailable)
	var ae *AppError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, KindNetwork, ae.Kind)
	assert.Equal(t, "load", ae.Op)

	already := SecurityError("auth", ErrLockedOut)
	assert.Same(t, already.(*AppError), Classify("other", already).(*AppError))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrUnavailable))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(ErrRateLimited))
	assert.False(t, IsRetryable(ErrNoConnectivity))
	assert.False(t, IsRetryable(ErrTamperedOrWrongKey))
	assert.False(t, IsRetryable(AuthenticationError("fetch", ErrInvalidToken)))
}
