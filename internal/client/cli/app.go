package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/securebank/internal/bankapi"
	"github.com/dmitrijs2005/securebank/internal/buildinfo"
	"github.com/dmitrijs2005/securebank/internal/client/auth"
	"github.com/dmitrijs2005/securebank/internal/client/cache"
	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/config"
	"github.com/dmitrijs2005/securebank/internal/client/connectivity"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/mapper"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/accounts"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/cachemeta"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/cards"
	"github.com/dmitrijs2005/securebank/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/securebank/internal/client/securestore"
	"github.com/dmitrijs2005/securebank/internal/client/services"
	"github.com/dmitrijs2005/securebank/internal/client/session"
	"github.com/dmitrijs2005/securebank/internal/client/storage"
	"github.com/dmitrijs2005/securebank/internal/clock"
	"github.com/dmitrijs2005/securebank/internal/cryptox"
	"github.com/dmitrijs2005/securebank/internal/filex"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/dmitrijs2005/securebank/internal/observability"
	"github.com/dmitrijs2005/securebank/internal/tokens"
)

const credentialPrefix = "credential."

type enroller interface {
	Enrolled(ctx context.Context) (bool, error)
	Enroll(ctx context.Context, passcode []byte) error
	Replace(ctx context.Context, passcode []byte) error
}

// secretWiper removes sealed entries by key prefix.
type secretWiper interface {
	RemovePrefix(ctx context.Context, prefix string) error
}

type connectivityView interface {
	IsConnected() bool
}

type App struct {
	cfg      *config.Config
	out      io.Writer
	reader   *bufio.Reader
	logger   logging.Logger
	reporter observability.Reporter

	auth     *auth.Machine
	enroller enroller
	session  *session.Machine
	conn     connectivityView
	monitor  *connectivity.Monitor
	probe    auth.DeviceProbe

	accounts     services.AccountService
	transactions services.TransactionService
	cards        services.CardService
	sync         services.SyncService
	secrets      secretWiper

	readSecret func(prompt string) ([]byte, error)
	closers    []func() error
}

// lockedWriter serializes output from the shell and from timer callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewApp wires the client. It fails when the encryption key does not pass
// its self-check, since nothing could be stored or read safely.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (app *App, err error) {
	out = &lockedWriter{w: out}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	a := &App{cfg: cfg, out: out, reader: bufio.NewReader(in), logger: logger.With("module", "cli")}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	reporter, err := observability.NewReporter(cfg.SentryDSN, cfg.Environment, buildinfo.Release("securebank-cli"))
	if err != nil {
		return nil, fmt.Errorf("init error reporting: %w", err)
	}
	a.reporter = reporter
	a.closers = append(a.closers, func() error { reporter.Flush(); return nil })

	if _, err := filex.EnsurePrivateDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	ks, err := cryptox.NewFileKeystore(cfg.KeystoreDir(), []byte(cfg.DeviceSecret))
	if err != nil {
		return nil, err
	}
	envelope, err := cryptox.NewEnvelope(ks, cfg.KeyAlias)
	if err != nil {
		reporter.Report(ctx, err, map[string]string{"stage": "keystore"})
		return nil, err
	}
	if err := envelope.SelfCheck(); err != nil {
		reporter.Report(ctx, err, map[string]string{"stage": "self-check"})
		return nil, fmt.Errorf("encryption self-check failed: %w", err)
	}

	secrets := securestore.New(db, envelope)
	a.secrets = secrets
	a.readSecret = func(prompt string) ([]byte, error) { return GetSecret(a.out, prompt) }
	passcode := auth.NewPasscodeAuthenticator(secrets, func(prompt string) ([]byte, error) { return a.readSecret(prompt) })
	a.enroller = passcode
	a.probe = auth.NewHostProbe(cfg.ScreenLock, cfg.DeviceSecure, passcode)

	issuer, err := tokens.NewIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL, time.Now)
	if err != nil {
		return nil, err
	}
	a.auth, err = auth.NewMachine(ctx, securestore.NewProfileStore(secrets), passcode, issuer, clock.System{},
		auth.WithPolicy(cfg.AuthPolicy()), auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.session = session.NewMachine(a.auth, clock.System{}, cfg.SessionConfig(), logger)

	grpcClient, err := client.NewGRPCClient(cfg.ServerEndpointAddr, a.auth, cfg.CallTimeout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, grpcClient.Close)
	remote := client.NewResilient(grpcClient, cfg.ResilienceConfig(), logger)

	a.monitor = connectivity.NewMonitor(connectivity.NewHealthProber(grpcClient.Conn(), bankapi.ServiceName),
		cfg.OnlineCheckInterval, cfg.OnlineCheckTimeout, logger)
	a.conn = a.monitor

	policy, err := coordinator.ParseRefreshPolicy(cfg.RefreshPolicy)
	if err != nil {
		return nil, err
	}
	ledger := cache.NewLedger(cachemeta.NewSQLiteRepository(db), clock.System{}, cfg.TTLPolicy())
	env := services.Env{
		Coordinator: coordinator.New(ledger, a.monitor, policy, reporter, logger),
		Gate:        a.session,
		Conn:        a.monitor,
		Remote:      remote,
		Mapper:      mapper.New(envelope),
		Logger:      logger,
	}
	accountRepo := accounts.NewSQLiteRepository(db)
	txRepo := transactions.NewSQLiteRepository(db)
	cardRepo := cards.NewSQLiteRepository(db)
	a.accounts = services.NewAccountService(env, accountRepo)
	a.transactions = services.NewTransactionService(env, txRepo, cfg.FetchPageSize)
	a.cards = services.NewCardService(env, cardRepo, a.probe)
	a.sync = services.NewSyncService(env, ledger, a.accounts, a.transactions, a.cards, accountRepo, txRepo, cardRepo)

	a.watchSession()
	return a, nil
}

// watchSession reports session transitions the user did not trigger.
func (a *App) watchSession() {
	a.session.Subscribe(func(from, to session.State) {
		switch to {
		case session.StateWarning:
			fmt.Fprintln(a.out, "\nYour session expires in one minute. Run any command to stay signed in.")
		case session.StateExpired:
			fmt.Fprintln(a.out, "\nSession expired. Type 'login' to continue.")
		case session.StateBackgroundTimeout:
			fmt.Fprintln(a.out, "\nSession ended while the app was in the background.")
		}
	})
}

// watchConnectivity prints connectivity transitions until ctx ends.
func (a *App) watchConnectivity(ctx context.Context) {
	if a.monitor == nil {
		return
	}
	updates, cancel := a.monitor.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case online := <-updates:
				if online {
					fmt.Fprintln(a.out, "\n[online]")
				} else {
					fmt.Fprintln(a.out, "\n[offline] showing cached data")
				}
			}
		}
	}()
}

// Run starts background monitoring and blocks in the shell until the user
// exits or ctx ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Check(ctx)
		a.watchConnectivity(ctx)
		go a.monitor.Run(ctx)
	}

	fmt.Fprintln(a.out, "Welcome to SecureBank (type 'help' for commands)")
	if !a.auth.BiometricEnabled() {
		fmt.Fprintln(a.out, "No passcode enrolled yet. Type 'enroll' to set one up.")
	}
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
	a.session.End(context.WithoutCancel(ctx))
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) status() string {
	mode := "offline"
	if a.conn.IsConnected() {
		mode = "online"
	}
	return fmt.Sprintf("%s %s", mode, a.session.State())
}
