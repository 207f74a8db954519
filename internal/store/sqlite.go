package store

import (
	"context"
	"log/slog"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteDialect is the dialect of the pure-Go sqlite driver.
var SQLiteDialect = Dialect{Name: "sqlite", Placeholder: QuestionPlaceholder}

func init() {
	Register("sqlite", Driver{
		Dialect: SQLiteDialect,
		Open: func(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
			return openSQL(ctx, "sqlite", filePath(cfg, ".db"), cfg, SQLiteDialect, logger)
		},
	})
}

// filePath resolves the database file of an embedded engine. An explicit
// Path wins; otherwise the database name is used as the file stem.
func filePath(cfg Config, ext string) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	if cfg.Database == "" || cfg.Database == ":memory:" {
		return ":memory:"
	}
	if filepath.Ext(cfg.Database) != "" {
		return cfg.Database
	}
	return cfg.Database + ext
}
