// Package observability reports integrity failures to an error tracker.
package observability

import (
	"context"
	"time"

	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/getsentry/sentry-go"
)

// Reporter records errors that must reach operators, such as tampered
// ciphertext or a missing encryption key.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush()
}

// NopReporter drops every report.
type NopReporter struct{}

func (NopReporter) Report(context.Context, error, map[string]string) {}
func (NopReporter) Flush()                                           {}

// SentryReporter sends reports through a dedicated sentry hub.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewReporter returns a SentryReporter when dsn is set and a NopReporter
// otherwise.
func NewReporter(dsn, environment, release string) (Reporter, error) {
	if dsn == "" {
		return NopReporter{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, err
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("kind", common.KindOf(err).String())
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush() {
	r.hub.Flush(2 * time.Second)
}
