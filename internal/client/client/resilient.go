package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
)

type ResilienceConfig struct {
	// MaxRetries bounds the extra attempts after the first.
	MaxRetries  uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// The breaker opens after BreakerFailures consecutive failures and
	// probes again after BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		MaxRetries:      2,
		BaseBackoff:     200 * time.Millisecond,
		MaxBackoff:      2 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Resilient retries transient network errors and stops calling a backend
// that keeps failing.
type Resilient struct {
	next    Remote
	cfg     ResilienceConfig
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

var _ Remote = (*Resilient)(nil)

func NewResilient(next Remote, cfg ResilienceConfig, logger logging.Logger) *Resilient {
	r := &Resilient{next: next, cfg: cfg, logger: logger.With("module", "remote")}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bank-backend",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// only transport failures count against the backend
		IsSuccessful: func(err error) bool {
			return err == nil || common.KindOf(err) != common.KindNetwork
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return r
}

// BreakerState reports the circuit breaker state, e.g. "closed".
func (r *Resilient) BreakerState() string { return r.breaker.State().String() }

func (r *Resilient) backoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.BaseBackoff)
	b = retry.WithCappedDuration(r.cfg.MaxBackoff, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(r.cfg.MaxRetries, b)
}

func execute[T any](ctx context.Context, r *Resilient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		v, err := r.breaker.Execute(func() (any, error) { return fn(ctx) })
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return common.NetworkError(op, fmt.Errorf("%w: circuit breaker open", common.ErrUnavailable))
		case err != nil:
			if common.IsRetryable(err) {
				r.logger.Debug(ctx, "retrying remote call", "op", op, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		out = v.(T)
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (r *Resilient) Account(ctx context.Context) (models.AccountDTO, error) {
	return execute(ctx, r, "account", r.next.Account)
}

func (r *Resilient) Transactions(ctx context.Context, page, size int) ([]models.TransactionDTO, error) {
	return execute(ctx, r, "transactions", func(ctx context.Context) ([]models.TransactionDTO, error) {
		return r.next.Transactions(ctx, page, size)
	})
}

func (r *Resilient) Transaction(ctx context.Context, id string) (models.TransactionDTO, error) {
	return execute(ctx, r, "transaction", func(ctx context.Context) (models.TransactionDTO, error) {
		return r.next.Transaction(ctx, id)
	})
}

func (r *Resilient) Cards(ctx context.Context) ([]models.CardDTO, error) {
	return execute(ctx, r, "cards", r.next.Cards)
}

func (r *Resilient) Card(ctx context.Context, id string) (models.CardDTO, error) {
	return execute(ctx, r, "card", func(ctx context.Context) (models.CardDTO, error) {
		return r.next.Card(ctx, id)
	})
}

// ToggleCard is not idempotent from the caller's view, so it is sent once.
func (r *Resilient) ToggleCard(ctx context.Context, id string, active bool) (models.CardDTO, error) {
	v, err := r.breaker.Execute(func() (any, error) { return r.next.ToggleCard(ctx, id, active) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.CardDTO{}, common.NetworkError("toggle card", fmt.Errorf("%w: circuit breaker open", common.ErrUnavailable))
	}
	if err != nil {
		return models.CardDTO{}, err
	}
	return v.(models.CardDTO), nil
}
