package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/gathernomics/internal/core"
)

// ErrNoSourceTable is returned when a factor is written without a source table id.
var ErrNoSourceTable = errors.New("factor has no source table")

// DBTX is the subset of *sql.DB and *sql.Tx used by Store.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store writes source tables and financial factors.
// Source table ids are cached per name for the lifetime of the Store.
type Store struct {
	db DBTX

	mu     sync.Mutex
	tables map[string]int64
}

// New returns a Store backed by db.
func New(db DBTX) *Store {
	return &Store{
		db:     db,
		tables: make(map[string]int64),
	}
}

const upsertSourceTable = `
INSERT INTO source_tables (name, type, last_update)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET type = EXCLUDED.type, last_update = EXCLUDED.last_update
RETURNING table_id`

// EnsureSourceTable creates or refreshes the source table row for name and
// returns its id.
func (s *Store) EnsureSourceTable(ctx context.Context, name string, source core.SourceType, lastUpdate time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tables[name]; ok {
		return id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, upsertSourceTable, name, source.String(), dateOnly(lastUpdate)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert source table %s: %w", name, err)
	}

	s.tables[name] = id
	return id, nil
}

const upsertFactor = `
INSERT INTO financial_factors (fiscal_value, frequency, indicator, main_category, date, table_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (indicator, main_category, date) DO UPDATE
SET fiscal_value = EXCLUDED.fiscal_value,
    frequency = EXCLUDED.frequency,
    table_id = EXCLUDED.table_id`

// UpsertFactor writes rec keyed by (indicator, category, date).
// It reports whether a row was written. A conflicting row is always
// rewritten, so identical data still counts.
func (s *Store) UpsertFactor(ctx context.Context, tableID int64, rec core.Record) (bool, error) {
	if tableID <= 0 {
		return false, ErrNoSourceTable
	}

	res, err := s.db.ExecContext(ctx, upsertFactor,
		rec.Value,
		rec.Frequency.String(),
		rec.Indicator,
		rec.Category,
		dateOnly(rec.Date),
		tableID,
	)
	if err != nil {
		return false, fmt.Errorf("upsert factor %s/%s %s: %w",
			rec.Indicator, rec.Category, rec.Date.Format(time.DateOnly), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert factor rows affected: %w", err)
	}
	return n > 0, nil
}

const countFactors = `SELECT COUNT(*) FROM financial_factors WHERE table_id = $1`

// CountFactors returns the number of factors stored for a source table.
func (s *Store) CountFactors(ctx context.Context, tableID int64) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countFactors, tableID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count factors: %w", err)
	}
	return n, nil
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
