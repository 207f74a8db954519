package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// PostgresDialect is the dialect of the pgx driver.
var PostgresDialect = Dialect{Name: "postgres", Placeholder: DollarPlaceholder, NeedsCredentials: true}

// sqlstateInvalidCatalog is raised when the requested database does not exist.
const sqlstateInvalidCatalog = "3D000"

// defaultMaintenanceDB is the database connected to when creating another one.
const defaultMaintenanceDB = "postgres"

func init() {
	Register("postgres", Driver{
		Dialect: PostgresDialect,
		Open: func(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
			if logger != nil {
				logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
			}
			return openSQL(ctx, "pgx", buildPostgresDSN(cfg), cfg, PostgresDialect, logger)
		},
		CreateDatabase: createPostgresDatabase,
	})
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		quoteDSNValue(host), port, quoteDSNValue(cfg.Database), quoteDSNValue(sslmode))

	if cfg.Username != "" {
		dsn += " user=" + quoteDSNValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}
	if cfg.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(cfg.ConnectTimeout.Seconds()))
	}

	// Remaining options are passed through in a stable order.
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k == "sslmode" || k == "maintenance_db" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, quoteDSNValue(cfg.Options[k]))
	}

	return dsn
}

// quoteDSNValue single-quotes values that are empty or contain spaces,
// quotes or backslashes, as libpq expects.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// IsDatabaseMissing reports whether err says the requested database does
// not exist.
func IsDatabaseMissing(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateInvalidCatalog
	}
	return false
}

// createPostgresDatabase connects to the maintenance database with the same
// credentials and issues CREATE DATABASE when cfg.Database is absent.
func createPostgresDatabase(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	admin := cfg
	admin.Database = defaultMaintenanceDB
	if name, ok := cfg.Options["maintenance_db"]; ok && name != "" {
		admin.Database = name
	}

	s, err := openSQL(ctx, "pgx", buildPostgresDSN(admin), admin, PostgresDialect, logger)
	if err != nil {
		return &SchemaError{Database: cfg.Database, Err: err}
	}
	defer func() { _ = s.Close() }()

	existing, err := s.Strings(ctx, `SELECT datname FROM pg_database WHERE datname = ?`, cfg.Database)
	if err != nil {
		return &SchemaError{Database: cfg.Database, Err: err}
	}
	if len(existing) > 0 {
		return nil
	}

	stmt := "CREATE DATABASE " + pgx.Identifier{cfg.Database}.Sanitize() + " ENCODING 'UTF8'"
	if _, err := s.Exec(ctx, stmt); err != nil {
		return &SchemaError{Database: cfg.Database, Err: err}
	}

	logger.Info("database created", slog.String("database", cfg.Database))
	return nil
}
