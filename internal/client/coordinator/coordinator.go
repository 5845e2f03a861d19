// Package coordinator runs the offline-first sync pipeline: serve what is
// cached, refresh from the backend when needed, persist the fresh records
// sealed, then mark them fresh in the cache ledger.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
	"github.com/dmitrijs2005/securebank/internal/observability"
	"golang.org/x/sync/singleflight"
)

// RefreshPolicy decides whether a valid cache is refreshed anyway.
type RefreshPolicy string

const (
	// RefreshStaleOnly skips the network while the cache is valid.
	RefreshStaleOnly RefreshPolicy = "stale-only"
	// RefreshAlwaysReconcile fetches whenever the backend is reachable,
	// serving the valid cache first.
	RefreshAlwaysReconcile RefreshPolicy = "always-reconcile"
)

func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch p := RefreshPolicy(s); p {
	case RefreshStaleOnly, RefreshAlwaysReconcile:
		return p, nil
	case "":
		return RefreshStaleOnly, nil
	}
	return "", fmt.Errorf("unknown refresh policy %q", s)
}

// Ledger is the part of the cache ledger the pipeline uses.
type Ledger interface {
	IsValid(ctx context.Context, class models.EntityClass) (bool, error)
	RecordFetch(ctx context.Context, class models.EntityClass, count int) error
}

type Connectivity interface {
	IsConnected() bool
}

// Source binds the pipeline to one entity class.
type Source[T any] interface {
	Class() models.EntityClass
	// LoadCached opens the persisted records.
	LoadCached(ctx context.Context) ([]T, error)
	// Fetch retrieves the records from the backend.
	Fetch(ctx context.Context) ([]T, error)
	// Store seals and replaces every persisted record of the class.
	Store(ctx context.Context, items []T) error
}

// CacheChecker is implemented by sources whose LoadCached may return nothing
// while records are cached, such as a page past the end of a history.
type CacheChecker interface {
	HasCached(ctx context.Context) (bool, error)
}

// Presenter is implemented by sources that must redact freshly fetched
// records before they are emitted. The input is shared between concurrent
// callers and must not be modified.
type Presenter[T any] interface {
	Present(items []T) []T
}

type Coordinator struct {
	ledger   Ledger
	conn     Connectivity
	policy   RefreshPolicy
	reporter observability.Reporter
	logger   logging.Logger
	group    singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared refresh of one class. Its context ends when the
// refresh finishes or when every waiting run has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func New(ledger Ledger, conn Connectivity, policy RefreshPolicy, reporter observability.Reporter, logger logging.Logger) *Coordinator {
	if policy == "" {
		policy = RefreshStaleOnly
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	return &Coordinator{
		ledger:   ledger,
		conn:     conn,
		policy:   policy,
		reporter: reporter,
		logger:   logger.With("module", "coordinator"),
		flights:  make(map[string]*flight),
	}
}

func (c *Coordinator) Policy() RefreshPolicy { return c.policy }

// run carries the state of one invocation.
type run[T any] struct {
	c         *Coordinator
	src       Source[T]
	class     models.EntityClass
	out       chan models.Result[[]T]
	succeeded bool
}

func (r *run[T]) emit(res models.Result[[]T]) {
	if res.IsSuccess() {
		r.succeeded = true
	}
	r.out <- res
}

// fail emits err unless a success was already emitted. Crypto errors are
// always emitted and reported.
func (r *run[T]) fail(ctx context.Context, err error) {
	if common.IsCrypto(err) {
		r.c.reporter.Report(ctx, err, map[string]string{"class": string(r.class)})
		r.c.logger.Error(ctx, "integrity failure", "class", r.class, "error", err)
		r.out <- models.Failure[[]T](err)
		return
	}
	if r.succeeded {
		r.c.logger.Debug(ctx, "refresh failed, cached data already served", "class", r.class, "error", err)
		return
	}
	r.out <- models.Failure[[]T](err)
}

// Run starts one sync invocation. The returned channel yields, in order,
// either Loading or a stale Success, then a fresh Success or an Error, and
// is closed when the invocation ends. A valid cache yields a single
// Success. A crypto error is the one failure still emitted after a stale
// Success.
func Run[T any](ctx context.Context, c *Coordinator, src Source[T], forceRefresh bool) <-chan models.Result[[]T] {
	r := &run[T]{c: c, src: src, class: src.Class(), out: make(chan models.Result[[]T], 3)}
	go func() {
		defer close(r.out)
		defer func() {
			if p := recover(); p != nil {
				r.fail(ctx, common.UnknownError("sync "+string(r.class), fmt.Errorf("panic: %v", p)))
			}
		}()
		r.execute(ctx, forceRefresh)
	}()
	return r.out
}

func (r *run[T]) execute(ctx context.Context, forceRefresh bool) {
	c := r.c
	op := "sync " + string(r.class)

	valid, err := c.ledger.IsValid(ctx, r.class)
	if err != nil {
		c.logger.Warn(ctx, "cache ledger unreadable, treating cache as stale", "class", r.class, "error", err)
		valid = false
	}

	cached, err := r.src.LoadCached(ctx)
	if err != nil {
		if common.IsCrypto(err) {
			r.fail(ctx, err)
			return
		}
		c.logger.Warn(ctx, "cached records unreadable", "class", r.class, "error", err)
		cached = nil
	}

	hasCache := len(cached) > 0
	if !hasCache && err == nil {
		if p, ok := r.src.(CacheChecker); ok {
			present, cerr := p.HasCached(ctx)
			if cerr != nil {
				c.logger.Warn(ctx, "cache presence unknown", "class", r.class, "error", cerr)
			}
			hasCache = present && cerr == nil
		}
	}

	connected := c.conn.IsConnected()
	reconcile := c.policy == RefreshAlwaysReconcile && connected

	if valid && hasCache && !forceRefresh && !reconcile {
		r.emit(models.Success(cached))
		return
	}

	if hasCache {
		r.emit(models.StaleSuccess(cached))
	} else {
		r.emit(models.Loading[[]T]())
	}

	if !connected {
		if !r.succeeded {
			r.fail(ctx, common.NetworkError(op, common.ErrNoConnectivity))
		}
		return
	}

	fresh, err := r.refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.fail(ctx, common.Classify(op, err))
		return
	}
	if p, ok := r.src.(Presenter[T]); ok {
		fresh = p.Present(fresh)
	}
	r.emit(models.Success(fresh))
}

// refresh fetches, persists and records the class once for all concurrent
// callers. The shared work outlives any single caller; persisting and
// recording are skipped once every caller has gone. A caller whose ctx ends
// stops waiting and gets ctx.Err().
func (r *run[T]) refresh(ctx context.Context) ([]T, error) {
	key := string(r.class)
	c := r.c

	c.mu.Lock()
	f := c.flights[key]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	ch := c.group.DoChan(key, func() (any, error) {
		defer c.land(key, f)
		return r.share(f.ctx)
	})
	c.mu.Unlock()
	defer c.leave(key, f)

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		items, ok := res.Val.([]T)
		if !ok {
			return nil, common.UnknownError("sync "+key, fmt.Errorf("unexpected shared result %T", res.Val))
		}
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// share is the work of one flight. A panic is returned as an error so that
// it reaches every waiter.
func (r *run[T]) share(ctx context.Context) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = common.UnknownError("sync "+string(r.class), fmt.Errorf("panic: %v", p))
		}
	}()
	items, err := r.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.src.Store(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", r.class, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.c.ledger.RecordFetch(ctx, r.class, len(items)); err != nil {
		return nil, err
	}
	r.c.logger.Info(ctx, "cache refreshed", "class", r.class, "records", len(items))
	return items, nil
}

// leave drops one waiter and abandons the flight when none is left.
func (c *Coordinator) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		// later runs must not join the abandoned call
		c.group.Forget(key)
	}
}

// land ends a flight whose shared work has returned.
func (c *Coordinator) land(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	f.cancel()
}
