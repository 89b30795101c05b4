package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dorjee9/algotrade-simple/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for bar loading and run history.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
// The schema must already exist (see New).
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	return &Reader{db: db}, nil
}

// ReadBars reads bars for symbol with from <= date < to.
// Results are ordered by date ascending.
func (r *Reader) ReadBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		var volume sql.NullInt64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.Date = time.Unix(tsUnix, 0).UTC()
		b.Volume = volume.Int64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Coverage returns the fetched range recorded for symbol.
// ok is false if the symbol was never synced.
func (r *Reader) Coverage(ctx context.Context, symbol string) (from, to time.Time, ok bool, err error) {
	var fromTS, toTS int64
	err = r.db.QueryRowContext(ctx,
		`SELECT from_ts, to_ts FROM bar_coverage WHERE symbol = ?`, symbol,
	).Scan(&fromTS, &toTS)
	if errors.Is(err, sql.ErrNoRows) {
		return from, to, false, nil
	}
	if err != nil {
		return from, to, false, fmt.Errorf("sqlite read coverage: %w", err)
	}
	return time.Unix(fromTS, 0).UTC(), time.Unix(toTS, 0).UTC(), true, nil
}

// RecentRuns returns up to limit stored runs, newest first.
func (r *Reader) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, symbol, from_ts, to_ts, params, days, ending_value, return_pct, trades, skipped_buys, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var fromTS, toTS, createdMs int64
		var params string
		if err := rows.Scan(&rec.RunID, &rec.Symbol, &fromTS, &toTS, &params, &rec.Days,
			&rec.EndingValue, &rec.ReturnPct, &rec.Trades, &rec.SkippedBuys, &createdMs); err != nil {
			return nil, fmt.Errorf("sqlite scan runs: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("unmarshal run params: %w", err)
		}
		rec.From = time.Unix(fromTS, 0).UTC()
		rec.To = time.Unix(toTS, 0).UTC()
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
