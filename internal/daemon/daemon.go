package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"oap/internal/config"
	"oap/internal/identity"
	"oap/internal/intake"
	"oap/internal/logging"
	"oap/internal/notifications"
	"oap/internal/results"
	"oap/internal/sequence"
	"oap/internal/store"
	"oap/internal/transition"
)

const drainTimeout = 15 * time.Second

// Daemon owns the API server and its dependencies.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      store.Store
	dispatcher *notifications.Dispatcher
	handler    *handler

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	server  *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Bind         string
	StoreDriver  string
	LockFilePath string
}

// New constructs a daemon. The daemon takes ownership of st and closes it in
// Close.
func New(cfg *config.Config, st store.Store, notifier notifications.Notifier, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	dispatcher := notifications.NewDispatcher(notifier, cfg.NotificationTimeout(), logger)
	h := &handler{
		manager:  transition.NewManager(st, dispatcher, logger),
		engine:   results.NewEngine(st, logger),
		issuer:   sequence.NewIssuer(st, logger),
		intake:   intake.NewService(st, identity.NewResolver(st), logger),
		store:    st,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		deadline: cfg.RequestTimeout(),
	}
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		dispatcher: dispatcher,
		handler:    h,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}, nil
}

// Handler exposes the HTTP routes, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return newRouter(d.handler, d.cfg.Server.APIToken)
}

// Start acquires the lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another oap daemon instance is already running")
	}

	if err := d.store.Ping(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("store unavailable: %w", err)
	}

	server := newAPIServer(d.cfg.Server.Bind, d.Handler(), d.logger)
	if err := server.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.server = server
	d.running = true
	d.logger.Info("oap daemon started",
		logging.String("lock", d.lockPath),
		logging.String("store", d.cfg.Store.Driver),
		logging.String("address", server.address()),
	)
	return nil
}

// Stop stops the API server, drains notifications, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.server.stop()
	d.server = nil

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if !d.dispatcher.Wait(drainCtx) {
		logging.WarnWithContext(d.logger, "notifications still in flight at shutdown", "notification_drain_timeout",
			logging.String(logging.FieldImpact, "some requesters may not be notified"),
		)
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running = false
	d.logger.Info("oap daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running,
		PID:          os.Getpid(),
		StoreDriver:  d.cfg.Store.Driver,
		LockFilePath: d.lockPath,
	}
	if d.server != nil {
		status.Bind = d.server.address()
	}
	return status
}
