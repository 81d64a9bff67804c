// Package detail holds the per-symbol history view.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
)

var (
	ErrSuperseded      = errors.New("superseded by a newer load")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Fetcher retrieves price history.
type Fetcher interface {
	Details(ctx context.Context, symbol, period, interval string) (*models.DetailSeries, error)
}

// Snapshot is one loaded detail view. HasStats is false when the history is empty.
type Snapshot struct {
	Symbol   string               `json:"symbol"`
	Period   string               `json:"period"`
	Interval string               `json:"interval"`
	Series   *models.DetailSeries `json:"series"`
	Stats    Stats                `json:"stats"`
	HasStats bool                 `json:"has_stats"`
	LoadedAt time.Time            `json:"loaded_at"`
}

type viewKey struct{}

// WithView scopes loads made with ctx to the named view. Loads in one view
// supersede each other; loads in different views are independent. A context
// without a view uses the default view.
func WithView(ctx context.Context, view string) context.Context {
	return context.WithValue(ctx, viewKey{}, view)
}

func viewFrom(ctx context.Context) string {
	view, _ := ctx.Value(viewKey{}).(string)
	return view
}

// inflight tracks the newest load of one view.
type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Model loads detail snapshots. Starting a load cancels the one in flight in the same view.
type Model struct {
	fetcher Fetcher
	logger  *common.Logger

	mu       sync.Mutex
	gen      uint64
	views    map[string]*inflight
	snapshot *Snapshot
}

// NewModel creates a detail model.
func NewModel(fetcher Fetcher, logger *common.Logger) *Model {
	return &Model{fetcher: fetcher, logger: logger, views: make(map[string]*inflight)}
}

// Load fetches history for symbol. Empty period and interval use the defaults (1y, 1d).
// A load superseded by a newer one in the same view returns ErrSuperseded and
// leaves the snapshot untouched.
func (m *Model) Load(ctx context.Context, symbol, period, interval string) (*Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if period == "" {
		period = models.DefaultPeriod
	}
	if interval == "" {
		interval = models.DefaultInterval
	}
	if !models.IsValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if !models.IsValidHistoryInterval(interval) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}

	view := viewFrom(ctx)
	loadCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if prev := m.views[view]; prev != nil {
		prev.cancel()
	}
	m.gen++
	gen := m.gen
	m.views[view] = &inflight{gen: gen, cancel: cancel}
	m.mu.Unlock()

	series, err := m.fetcher.Details(loadCtx, symbol, period, interval)

	m.mu.Lock()
	defer m.mu.Unlock()

	cancel()
	if cur := m.views[view]; cur == nil || cur.gen != gen {
		m.logger.Debug().Str("symbol", symbol).Str("view", view).Int64("generation", int64(gen)).Msg("Discarding superseded detail response")
		return nil, ErrSuperseded
	}
	delete(m.views, view)

	if err != nil {
		m.logger.Warn().Err(err).Str("symbol", symbol).Str("period", period).Msg("Detail load failed")
		return nil, fmt.Errorf("failed to load %s: %w", symbol, err)
	}

	stats, ok := ComputeStats(series.History)
	snap := &Snapshot{
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
		Series:   series,
		Stats:    stats,
		HasStats: ok,
		LoadedAt: time.Now(),
	}
	m.snapshot = snap
	return snap, nil
}

// Current returns the last successful snapshot of any view, or nil.
func (m *Model) Current() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}
