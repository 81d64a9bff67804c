// Package summary holds the dashboard table: one row per watchlist symbol,
// refreshed from the market API and sorted on demand.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
	"github.com/bobmcallan/niftyscope/internal/watchlist"
)

var (
	// ErrSuperseded is returned by a refresh whose response arrived after a newer refresh started.
	ErrSuperseded = errors.New("superseded by a newer refresh")
	// ErrInvalidSortKey is returned for a key that is neither "name" nor an interval label.
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// Fetcher retrieves summary rows for a list of symbols.
type Fetcher interface {
	Summary(ctx context.Context, symbols []string) ([]models.SummaryRow, error)
}

// SymbolSource supplies the symbols to summarise.
type SymbolSource interface {
	Symbols() []string
}

// State describes the last refresh.
type State struct {
	Loading   bool      `json:"loading"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	RowCount  int       `json:"row_count"`
}

// View is a sorted snapshot of the table.
type View struct {
	Rows  []models.SummaryRow `json:"rows"`
	Sort  models.SortConfig   `json:"sort"`
	State State               `json:"state"`
}

// Model is the summary table state container. It is safe for concurrent use.
type Model struct {
	fetcher Fetcher
	symbols SymbolSource
	logger  *common.Logger

	mu        sync.RWMutex
	rows      []models.SummaryRow
	sort      models.SortConfig
	gen       uint64
	loading   bool
	lastErr   string
	updatedAt time.Time
}

// NewModel creates an empty model sorted by name ascending.
func NewModel(fetcher Fetcher, symbols SymbolSource, logger *common.Logger) *Model {
	return &Model{
		fetcher: fetcher,
		symbols: symbols,
		logger:  logger,
		sort:    models.DefaultSortConfig(),
	}
}

// Refresh fetches rows for the current watchlist and replaces the table.
// An empty watchlist clears the table without calling upstream.
// On failure the previous rows are kept and the error is recorded in State.
func (m *Model) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.loading = true
	m.mu.Unlock()

	symbols := m.symbols.Symbols()

	var (
		rows []models.SummaryRow
		err  error
	)
	if len(symbols) > 0 {
		rows, err = m.fetcher.Summary(ctx, symbols)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.logger.Debug().Int64("generation", int64(gen)).Msg("Discarding superseded summary response")
		return ErrSuperseded
	}
	m.loading = false

	if err != nil {
		m.lastErr = err.Error()
		m.logger.Warn().Err(err).Int("symbols", len(symbols)).Msg("Summary refresh failed, keeping previous rows")
		return fmt.Errorf("failed to refresh summary: %w", err)
	}

	m.rows = rows
	m.lastErr = ""
	m.updatedAt = time.Now()
	m.logger.Debug().Int("symbols", len(symbols)).Int("rows", len(rows)).Msg("Summary refreshed")
	return nil
}

// OnWatchlistChange refreshes the table after the watchlist changed.
// It is registered with watchlist.Store.Subscribe. The refresh outlives the caller's cancellation.
func (m *Model) OnWatchlistChange(ctx context.Context, change watchlist.Change) {
	err := m.Refresh(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, ErrSuperseded) {
		m.logger.Warn().Err(err).Str("symbol", change.Symbol).Str("kind", string(change.Kind)).Msg("Refresh after watchlist change failed")
	}
}

// Sort selects the sort column. Choosing the active column flips the direction;
// a different column starts ascending.
func (m *Model) Sort(key string) (models.SortConfig, error) {
	if !models.IsValidSortKey(key) {
		return models.SortConfig{}, fmt.Errorf("%w: %q", ErrInvalidSortKey, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sort.Key == key && m.sort.Direction == models.SortAscending {
		m.sort.Direction = models.SortDescending
	} else {
		m.sort = models.SortConfig{Key: key, Direction: models.SortAscending}
	}
	return m.sort, nil
}

// SortConfig returns the active sort.
func (m *Model) SortConfig() models.SortConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort
}

// View returns the rows sorted by the active sort config. Stored rows are not reordered.
func (m *Model) View() View {
	m.mu.RLock()
	rows := append([]models.SummaryRow(nil), m.rows...)
	cfg := m.sort
	state := m.stateLocked()
	m.mu.RUnlock()

	SortRows(rows, cfg)
	return View{Rows: rows, Sort: cfg, State: state}
}

// Rows returns the stored rows in upstream order.
func (m *Model) Rows() []models.SummaryRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SummaryRow(nil), m.rows...)
}

// State reports the last refresh outcome.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Model) stateLocked() State {
	return State{
		Loading:   m.loading,
		LastError: m.lastErr,
		UpdatedAt: m.updatedAt,
		RowCount:  len(m.rows),
	}
}
