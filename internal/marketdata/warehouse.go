package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/internal/markethours"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// BarStore is the persistence the Warehouse reads from and writes to.
type BarStore interface {
	ReadBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)
	SaveBars(ctx context.Context, symbol string, bars []model.Bar) error
	Coverage(ctx context.Context, symbol string) (from, to time.Time, ok bool, err error)
	MarkCoverage(ctx context.Context, symbol string, from, to time.Time) error
}

// Warehouse serves bars from a local store and fills gaps from an upstream provider.
// With a nil upstream it serves only what the store holds. Nothing past the last
// closed session is fetched or marked as covered, so an in-progress bar is
// never persisted.
type Warehouse struct {
	store    BarStore
	upstream Source
	log      zerolog.Logger
	now      func() time.Time
}

// NewWarehouse creates a Warehouse.
func NewWarehouse(store BarStore, upstream Source, log zerolog.Logger) *Warehouse {
	return &Warehouse{
		store:    store,
		upstream: upstream,
		log:      log.With().Str("component", "warehouse").Logger(),
		now:      time.Now,
	}
}

// closedEnd caps an exclusive end date at the day after the last closed session.
func (w *Warehouse) closedEnd(to time.Time) time.Time {
	if limit := markethours.SyncEnd(w.now()); limit.Before(to) {
		return limit
	}
	return to
}

// Bars implements Source. If the stored coverage for symbol does not span
// [from, to), the union of both ranges is fetched upstream and persisted first.
// to is capped at the last closed session before checking coverage.
func (w *Warehouse) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	symbol = NormalizeSymbol(symbol)

	covFrom, covTo, ok, err := w.store.Coverage(ctx, symbol)
	if err != nil {
		return nil, err
	}
	end := w.closedEnd(to)
	covered := ok && !covFrom.After(from) && !covTo.Before(end)

	if !covered && w.upstream != nil && end.After(from) {
		syncFrom, syncTo := from, end
		if ok {
			if covFrom.Before(syncFrom) {
				syncFrom = covFrom
			}
			if covTo.After(syncTo) {
				syncTo = covTo
			}
		}
		if _, err := w.Sync(ctx, symbol, syncFrom, syncTo); err != nil {
			return nil, err
		}
	}

	bars, err := w.store.ReadBars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoData, symbol, from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	return bars, nil
}

// Sync fetches [from, to) for symbol from upstream and stores it, returning
// the number of bars saved. to is capped at the last closed session; a range
// that starts after it syncs nothing.
func (w *Warehouse) Sync(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	if w.upstream == nil {
		return 0, fmt.Errorf("warehouse: no upstream source for %s", symbol)
	}
	symbol = NormalizeSymbol(symbol)
	to = w.closedEnd(to)
	if !to.After(from) {
		return 0, nil
	}

	bars, err := w.upstream.Bars(ctx, symbol, from, to)
	if err != nil {
		return 0, fmt.Errorf("warehouse sync %s: %w", symbol, err)
	}
	bars = Normalize(bars, from, to)
	if err := w.store.SaveBars(ctx, symbol, bars); err != nil {
		return 0, err
	}
	if err := w.store.MarkCoverage(ctx, symbol, from, to); err != nil {
		return 0, err
	}

	w.log.Info().
		Str("symbol", symbol).
		Str("from", from.Format(model.DateLayout)).
		Str("to", to.Format(model.DateLayout)).
		Int("bars", len(bars)).
		Msg("synced bars")
	return len(bars), nil
}
