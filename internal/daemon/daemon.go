package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"coldstakepool/internal/config"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/pool"
	"coldstakepool/internal/services/capricoind"
	"coldstakepool/internal/version"
)

// Daemon coordinates the pool engine and status API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	settings *config.Settings
	chain    config.Chain
	poolDir  string
	logger   *slog.Logger
	store    *pool.Store
	engine   *pool.Engine
	client   *capricoind.Client
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	coreVersion atomic.Int64
	running     atomic.Bool
	cancel      context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Mode         string
	Chain        string
	DBPath       string
	LockFilePath string
	StatusBind   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, settings *config.Settings, chain config.Chain, poolDir string, store *pool.Store, engine *pool.Engine, client *capricoind.Client, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || settings == nil || store == nil || engine == nil {
		return nil, errors.New("daemon requires config, settings, store, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(poolDir, "coldstakepool.lock")
	d := &Daemon{
		cfg:      cfg,
		settings: settings,
		chain:    chain,
		poolDir:  poolDir,
		logger:   logger,
		store:    store,
		engine:   engine,
		client:   client,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(d)
	return d, nil
}

// Start acquires the daemon lock, launches the engine and starts the status
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pool instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if _, err := d.CoreVersion(runCtx); err != nil {
		d.logger.Warn("could not query node version yet",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "version endpoint reports 0 until the node answers"),
		)
	}

	if err := d.engine.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start engine: %w", err)
	}

	if err := d.api.start(runCtx); err != nil {
		d.engine.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("pool daemon started",
		logging.String("mode", d.settings.Mode),
		logging.String("chain", string(d.chain)),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("pool daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// CoreVersion returns the node's numeric version, querying it on first use
// and caching the result.
func (d *Daemon) CoreVersion(ctx context.Context) (int64, error) {
	if cached := d.coreVersion.Load(); cached != 0 {
		return cached, nil
	}
	if d.client == nil {
		return 0, errors.New("node rpc client unavailable")
	}
	info, err := d.client.GetNetworkInfo(ctx)
	if err != nil {
		return 0, err
	}
	d.coreVersion.Store(info.Version)
	return info.Version, nil
}

// coreVersionString renders the core version for the version endpoint.
func (d *Daemon) coreVersionString(ctx context.Context) string {
	v, err := d.CoreVersion(ctx)
	if err != nil {
		return "0"
	}
	return version.FormatCoreVersion(v)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Mode:         d.settings.Mode,
		Chain:        string(d.chain),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		StatusBind:   d.settings.StatusBind(),
	}
}

// APIAddr returns the bound status API address, useful when the configured
// port is 0.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}
