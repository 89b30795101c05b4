// Package sqlite persists daily bars and backtest run totals in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
	Logger zerolog.Logger
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db  *sql.DB
	log zerolog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log := cfg.Logger.With().Str("component", "sqlite").Logger()
	log.Debug().Str("path", cfg.DBPath).Msg("opened database")
	return &Writer{db: db, log: log}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  INTEGER,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS bar_coverage (
			symbol     TEXT    PRIMARY KEY,
			from_ts    INTEGER NOT NULL,
			to_ts      INTEGER NOT NULL,
			synced_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id        TEXT    PRIMARY KEY,
			symbol        TEXT    NOT NULL,
			from_ts       INTEGER NOT NULL,
			to_ts         INTEGER NOT NULL,
			params        TEXT    NOT NULL,
			days          INTEGER NOT NULL,
			ending_value  REAL    NOT NULL,
			return_pct    REAL    NOT NULL,
			trades        INTEGER NOT NULL,
			skipped_buys  INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at);
	`)
	return err
}

// SaveBars upserts bars for symbol in batched transactions.
func (w *Writer) SaveBars(ctx context.Context, symbol string, bars []model.Bar) error {
	start := time.Now()
	for lo := 0; lo < len(bars); lo += defaultBatchSize {
		hi := lo + defaultBatchSize
		if hi > len(bars) {
			hi = len(bars)
		}
		if err := w.insertBatch(ctx, symbol, bars[lo:hi]); err != nil {
			return fmt.Errorf("sqlite save bars %s: %w", symbol, err)
		}
	}
	w.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Dur("took", time.Since(start)).Msg("committed bars")
	return nil
}

// insertBatch inserts a batch of bars in a single transaction.
func (w *Writer) insertBatch(ctx context.Context, symbol string, bars []model.Bar) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, model.SessionDate(b.Date).Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// MarkCoverage records that [from, to) has been fetched for symbol.
// The stored range is widened, never narrowed.
func (w *Writer) MarkCoverage(ctx context.Context, symbol string, from, to time.Time) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO bar_coverage (symbol, from_ts, to_ts, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			from_ts   = MIN(from_ts, excluded.from_ts),
			to_ts     = MAX(to_ts, excluded.to_ts),
			synced_at = excluded.synced_at
	`, symbol, from.Unix(), to.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite mark coverage %s: %w", symbol, err)
	}
	return nil
}

// SaveRun stores the totals of one backtest run.
func (w *Writer) SaveRun(ctx context.Context, r RunRecord) error {
	params, err := r.paramsJSON()
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err = w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
			(run_id, symbol, from_ts, to_ts, params, days, ending_value, return_pct, trades, skipped_buys, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Symbol, r.From.Unix(), r.To.Unix(), params, r.Days,
		r.EndingValue, r.ReturnPct, r.Trades, r.SkippedBuys, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite save run %s: %w", r.RunID, err)
	}
	return nil
}

// Close closes the writer.
func (w *Writer) Close() error {
	return w.db.Close()
}
