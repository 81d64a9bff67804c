// Package search turns search-box keystrokes into debounced market API lookups.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
)

// ErrSuperseded is returned when a newer query arrived before this one completed.
var ErrSuperseded = errors.New("superseded by a newer query")

const (
	DefaultMinLength = 3
	DefaultDebounce  = 250 * time.Millisecond
)

// Searcher looks up tickers.
type Searcher interface {
	Search(ctx context.Context, q string) ([]models.SearchResult, error)
}

// Adder adds a symbol to the watchlist.
type Adder interface {
	Add(ctx context.Context, symbol string) (bool, error)
}

// Options tunes gating. MinLength is the shortest trimmed query sent upstream;
// Debounce is how long a query must stay the latest before it is sent (0 sends immediately).
type Options struct {
	MinLength int
	Debounce  time.Duration
}

// State is the current query and its results.
type State struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
}

// Helper holds the search box state. It is safe for concurrent use.
type Helper struct {
	searcher Searcher
	adder    Adder
	opts     Options
	logger   *common.Logger

	mu      sync.Mutex
	gen     uint64
	query   string
	results []models.SearchResult
}

// NewHelper creates a helper. A non-positive MinLength uses DefaultMinLength.
func NewHelper(searcher Searcher, adder Adder, opts Options, logger *common.Logger) *Helper {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	return &Helper{
		searcher: searcher,
		adder:    adder,
		opts:     opts,
		logger:   logger,
	}
}

// Search records query and, when it is long enough and still the latest after the
// debounce window, fetches matches. Short queries clear the results without a network call.
func (h *Helper) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(query)

	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.query = q
	if utf8.RuneCountInString(q) < h.opts.MinLength {
		h.results = nil
		h.mu.Unlock()
		return []models.SearchResult{}, nil
	}
	h.mu.Unlock()

	if h.opts.Debounce > 0 {
		timer := time.NewTimer(h.opts.Debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if !h.isLatest(gen) {
			return nil, ErrSuperseded
		}
	}

	results, err := h.searcher.Search(ctx, q)

	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		h.results = nil
		h.logger.Warn().Err(err).Str("query", q).Msg("Search failed")
		return nil, fmt.Errorf("failed to search %q: %w", q, err)
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	h.results = results
	return append([]models.SearchResult(nil), results...), nil
}

// Select adds symbol to the watchlist and clears the query and results.
func (h *Helper) Select(ctx context.Context, symbol string) (bool, error) {
	added, err := h.adder.Add(ctx, symbol)
	if err != nil && !added {
		return false, err
	}
	h.Clear()
	return added, err
}

// Clear resets the query and results and supersedes any pending search.
func (h *Helper) Clear() {
	h.mu.Lock()
	h.gen++
	h.query = ""
	h.results = nil
	h.mu.Unlock()
}

// Results returns the results of the latest completed search.
func (h *Helper) Results() []models.SearchResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.SearchResult(nil), h.results...)
}

// State returns the current query and results.
func (h *Helper) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return State{Query: h.query, Results: append([]models.SearchResult{}, h.results...)}
}

func (h *Helper) isLatest(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return gen == h.gen
}
