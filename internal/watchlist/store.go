// Package watchlist keeps the user's ordered list of tracked ticker symbols.
package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
)

// StorageKey is the key the list is persisted under, as a JSON array of strings.
const StorageKey = "watchlist"

// ErrInvalidSymbol is returned for an empty symbol.
var ErrInvalidSymbol = errors.New("invalid symbol")

// ChangeKind says what happened to the list.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
)

// Change describes one mutation. Symbols is the list after the mutation.
type Change struct {
	Kind    ChangeKind
	Symbol  string
	Symbols []string
}

// Listener is called after every mutation that changed the list.
type Listener func(ctx context.Context, change Change)

// Store is the watchlist state container. It is safe for concurrent use.
type Store struct {
	kv       interfaces.KeyValueStorage
	defaults []string
	logger   *common.Logger

	// writeMu orders mutations with their persists so storage always ends
	// with the newest list. It is never held while listeners run.
	writeMu sync.Mutex

	mu        sync.RWMutex
	symbols   []string
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store backed by kv. defaults seeds the list when nothing is stored.
func NewStore(kv interfaces.KeyValueStorage, defaults []string, logger *common.Logger) *Store {
	return &Store{
		kv:        kv,
		defaults:  append([]string(nil), defaults...),
		logger:    logger,
		symbols:   append([]string(nil), defaults...),
		listeners: make(map[int]Listener),
	}
}

// Load reads the persisted list. An absent, unreadable or malformed value yields the defaults.
func (s *Store) Load(ctx context.Context) []string {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	symbols := s.read(ctx)

	s.mu.Lock()
	s.symbols = symbols
	s.mu.Unlock()

	s.logger.Info().Int("symbols", len(symbols)).Msg("Watchlist loaded")
	return append([]string(nil), symbols...)
}

func (s *Store) read(ctx context.Context) []string {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read watchlist, using defaults")
		}
		return append([]string(nil), s.defaults...)
	}

	var symbols []string
	if err := json.Unmarshal([]byte(raw), &symbols); err != nil || symbols == nil {
		s.logger.Warn().Str("value", raw).Msg("Stored watchlist is malformed, using defaults")
		return append([]string(nil), s.defaults...)
	}
	return symbols
}

// Symbols returns a copy of the current list.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.symbols...)
}

// Contains reports whether symbol is in the list.
func (s *Store) Contains(symbol string) bool {
	symbol = Normalize(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.symbols, symbol) >= 0
}

// Add appends symbol if it is not already present. It reports whether the list changed.
// A persist failure keeps the in-memory change and is returned.
func (s *Store) Add(ctx context.Context, symbol string) (bool, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return false, ErrInvalidSymbol
	}

	s.writeMu.Lock()
	s.mu.Lock()
	if indexOf(s.symbols, symbol) >= 0 {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return false, nil
	}
	s.symbols = append(s.symbols, symbol)
	snapshot := append([]string(nil), s.symbols...)
	s.mu.Unlock()

	err := s.persist(ctx, snapshot)
	s.writeMu.Unlock()

	s.notify(ctx, Change{Kind: Added, Symbol: symbol, Symbols: snapshot})
	return true, err
}

// Remove drops every occurrence of symbol. It reports whether the list changed.
func (s *Store) Remove(ctx context.Context, symbol string) (bool, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return false, ErrInvalidSymbol
	}

	s.writeMu.Lock()
	s.mu.Lock()
	kept := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		if sym != symbol {
			kept = append(kept, sym)
		}
	}
	if len(kept) == len(s.symbols) {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return false, nil
	}
	s.symbols = kept
	snapshot := append([]string(nil), kept...)
	s.mu.Unlock()

	err := s.persist(ctx, snapshot)
	s.writeMu.Unlock()

	s.notify(ctx, Change{Kind: Removed, Symbol: symbol, Symbols: snapshot})
	return true, err
}

// Subscribe registers fn for future changes and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) persist(ctx context.Context, symbols []string) error {
	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("failed to encode watchlist: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist watchlist")
		return fmt.Errorf("failed to persist watchlist: %w", err)
	}
	return nil
}

// notify runs listeners in subscription order without holding the lock.
func (s *Store) notify(ctx context.Context, change Change) {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.listeners))
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, change)
	}
}

// Normalize trims and upper-cases a ticker symbol. The format is not checked;
// folding case only keeps "tcs.ns" and "TCS.NS" from being tracked twice.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func indexOf(symbols []string, symbol string) int {
	return slices.Index(symbols, symbol)
}
