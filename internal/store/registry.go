package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Driver is a registered database engine.
type Driver struct {
	Dialect Dialect

	// Open connects to the database described by cfg.
	Open func(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error)

	// CreateDatabase creates cfg.Database when the engine supports it.
	// Nil for engines whose databases are created implicitly on open.
	CreateDatabase func(ctx context.Context, cfg Config, logger *slog.Logger) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

// Register adds a driver to the registry.
// Called by driver implementations in their init() functions.
func Register(name string, d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = d
}

// Lookup retrieves a driver by name.
func Lookup(name string) (Driver, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	return d, ok
}

// Drivers returns all registered driver names (sorted).
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects using the driver named in cfg.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	d, err := lookupConfigured(cfg)
	if err != nil {
		return nil, err
	}
	return d.Open(ctx, cfg, logger)
}

// CreateDatabase creates the configured database. Engines that create their
// databases on open report success without doing anything.
func CreateDatabase(ctx context.Context, cfg Config, logger *slog.Logger) error {
	d, err := lookupConfigured(cfg)
	if err != nil {
		return err
	}
	if d.CreateDatabase == nil {
		return nil
	}
	return d.CreateDatabase(ctx, cfg, logger)
}

// NeedsCredentials reports whether the configured driver authenticates users.
func NeedsCredentials(driver string) bool {
	d, ok := Lookup(driver)
	return ok && d.Dialect.NeedsCredentials
}

func lookupConfigured(cfg Config) (Driver, error) {
	if cfg.Driver == "" {
		return Driver{}, fmt.Errorf("driver not specified")
	}
	d, ok := Lookup(cfg.Driver)
	if !ok {
		return Driver{}, &UnknownDriverError{Driver: cfg.Driver, Available: Drivers()}
	}
	return d, nil
}

// openSQL opens driverName with dsn, pings it within cfg.ConnectTimeout and
// wraps the handle. Any failure is a *ConnectionError.
func openSQL(ctx context.Context, driverName, dsn string, cfg Config, d Dialect, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &ConnectionError{Driver: d.Name, Database: cfg.Database, Err: err}
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: d.Name, Database: cfg.Database, Err: err}
	}

	logger.Debug("connected", slog.String("driver", d.Name), slog.String("database", cfg.Database))
	return New(db, d, logger), nil
}
