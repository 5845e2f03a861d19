// Package server wires and runs the mock bank backend.
package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/securebank/internal/buildinfo"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/dmitrijs2005/securebank/internal/observability"
	"github.com/dmitrijs2005/securebank/internal/server/bank"
	"github.com/dmitrijs2005/securebank/internal/server/config"
	"github.com/dmitrijs2005/securebank/internal/tokens"

	gs "github.com/dmitrijs2005/securebank/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	reporter observability.Reporter
	server   *gs.GRPCServer
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	reporter, err := observability.NewReporter(c.SentryDSN, c.Environment, buildinfo.Release("securebank-server"))
	if err != nil {
		return nil, fmt.Errorf("error reporting init error: %w", err)
	}

	store, err := bank.NewStore()
	if err != nil {
		return nil, err
	}

	// the server only verifies, so the TTL is irrelevant
	verifier, err := tokens.NewIssuer([]byte(c.TokenSecret), time.Minute, nil)
	if err != nil {
		return nil, err
	}

	s := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, store, verifier, gs.Options{
		Latency:   c.Latency,
		FailEvery: c.FailEvery,
	})
	return &App{config: c, logger: logger, reporter: reporter, server: s}, nil
}

// Run serves until ctx is done. A serving failure is reported and returned.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...", "latency", app.config.Latency, "fail_every", app.config.FailEvery)
	defer app.reporter.Flush()

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		app.reporter.Report(ctx, err, map[string]string{"component": "grpc_server"})
		return err
	}
	app.logger.Info(ctx, "Stopped")
	return nil
}
