// Package importer writes a network document into the relational store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/tubeql/internal/network"
	"github.com/leapstack-labs/tubeql/internal/schema"
	"github.com/leapstack-labs/tubeql/internal/store"
)

// ErrTargetNotEmpty is returned when the store already holds a network.
// Line ids are assigned from document positions, so importing on top of
// existing rows would produce colliding ids and wrong joins.
var ErrTargetNotEmpty = errors.New("target already contains network data")

const (
	insertStation = `INSERT INTO stations (id, name) VALUES (?, ?)`
	insertLine    = `INSERT INTO trainlines (id, name) VALUES (?, ?)`
	insertPass    = `INSERT INTO passes (station_id, line_id) VALUES (?, ?)`
)

// Summary describes one import run.
type Summary struct {
	RunID    string
	Stations int
	Lines    int
	Passes   int
	Duration time.Duration
}

// Importer inserts documents into a store.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Importer. If logger is nil, a discard logger is used.
func New(s *store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{store: s, logger: logger}
}

// Loaded reports whether stations or lines have already been imported.
func (im *Importer) Loaded(ctx context.Context) (bool, error) {
	for _, table := range []string{schema.LinesTable, schema.StationsTable} {
		n, err := im.store.Count(ctx, table)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Import inserts every station, line and pass of doc in one transaction.
//
// Stations keep their document id. Lines are numbered 0..M-1 in document
// order. Each (line, station) pair becomes a pass row, duplicates included.
// The first failing insert rolls the whole import back.
func (im *Importer) Import(ctx context.Context, doc *network.Document) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := im.logger.With(slog.String("run_id", summary.RunID))

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.Normalize()

	loaded, err := im.Loaded(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect target: %w", err)
	}
	if loaded {
		return nil, ErrTargetNotEmpty
	}

	for _, id := range doc.UnknownStations() {
		logger.Warn("line references undeclared station", slog.String("station_id", string(id)))
	}

	logger.Debug("importing network",
		slog.Int("stations", len(doc.Stations)),
		slog.Int("lines", len(doc.Lines)),
		slog.Int("passes", doc.PassCount()))

	tx, err := im.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := im.insert(ctx, tx, doc, summary); err != nil {
		logger.Error("import aborted, rolling back", slog.Any("error", err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	logger.Info("network imported",
		slog.Int("stations", summary.Stations),
		slog.Int("lines", summary.Lines),
		slog.Int("passes", summary.Passes),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (im *Importer) insert(ctx context.Context, tx *store.Tx, doc *network.Document, summary *Summary) error {
	stations, err := tx.Prepare(ctx, insertStation)
	if err != nil {
		return err
	}
	defer func() { _ = stations.Close() }()

	lines, err := tx.Prepare(ctx, insertLine)
	if err != nil {
		return err
	}
	defer func() { _ = lines.Close() }()

	passes, err := tx.Prepare(ctx, insertPass)
	if err != nil {
		return err
	}
	defer func() { _ = passes.Close() }()

	for _, s := range doc.Stations {
		if _, err := stations.ExecContext(ctx, string(s.ID), s.Name); err != nil {
			return &store.StatementError{Statement: insertStation, Err: fmt.Errorf("station %q: %w", s.ID, err)}
		}
		summary.Stations++
	}

	for id, l := range doc.Lines {
		if _, err := lines.ExecContext(ctx, id, l.Name); err != nil {
			return &store.StatementError{Statement: insertLine, Err: fmt.Errorf("line %q: %w", l.Name, err)}
		}
		summary.Lines++

		for _, stationID := range l.Stations {
			if _, err := passes.ExecContext(ctx, string(stationID), id); err != nil {
				return &store.StatementError{Statement: insertPass, Err: fmt.Errorf("pass %q/%q: %w", l.Name, stationID, err)}
			}
			summary.Passes++
		}
	}
	return nil
}
