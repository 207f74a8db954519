package store

import (
	"context"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DuckDBDialect is the dialect of the duckdb driver.
var DuckDBDialect = Dialect{Name: "duckdb", Placeholder: QuestionPlaceholder}

func init() {
	Register("duckdb", Driver{
		Dialect: DuckDBDialect,
		Open: func(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
			path := filePath(cfg, ".duckdb")
			if path == ":memory:" {
				// go-duckdb treats the empty DSN as an in-memory database.
				path = ""
			}
			return openSQL(ctx, "duckdb", path, cfg, DuckDBDialect, logger)
		},
	})
}
