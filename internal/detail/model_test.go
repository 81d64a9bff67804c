package detail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type detailCall struct {
	symbol, period, interval string
}

// fakeFetcher serves a fixed series. Symbols listed in block wait for ctx cancellation.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []detailCall
	block   map[string]bool
	err     error
	started chan string
}

func (f *fakeFetcher) Details(ctx context.Context, symbol, period, interval string) (*models.DetailSeries, error) {
	f.mu.Lock()
	f.calls = append(f.calls, detailCall{symbol, period, interval})
	blocked := f.block[symbol]
	err := f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- symbol
	}
	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &models.DetailSeries{
		Symbol: symbol,
		Name:   symbol + " Ltd",
		History: []models.Candle{
			{Time: "2024-01-01 00:00:00", High: d("10"), Low: d("5"), Close: d("8")},
			{Time: "2024-01-02 00:00:00", High: d("15"), Low: d("2"), Close: d("12")},
		},
	}, nil
}

func newTestModel(f Fetcher) *Model {
	return NewModel(f, common.NewSilentLogger())
}

func TestLoad_DefaultsAndStats(t *testing.T) {
	f := &fakeFetcher{}
	m := newTestModel(f)

	snap, err := m.Load(context.Background(), " tcs.ns ", "", "")
	require.NoError(t, err)

	assert.Equal(t, []detailCall{{"TCS.NS", "1y", "1d"}}, f.calls)
	assert.Equal(t, "TCS.NS", snap.Symbol)
	assert.Equal(t, "TCS.NS Ltd", snap.Series.Name)
	assert.True(t, snap.HasStats)
	assert.True(t, snap.Stats.High.Equal(d("15")))
	assert.True(t, snap.Stats.Low.Equal(d("2")))
	assert.Same(t, snap, m.Current())
}

func TestLoad_PassesPeriodAndInterval(t *testing.T) {
	f := &fakeFetcher{}
	m := newTestModel(f)

	_, err := m.Load(context.Background(), "INFY.NS", "5y", "1wk")
	require.NoError(t, err)
	assert.Equal(t, []detailCall{{"INFY.NS", "5y", "1wk"}}, f.calls)
}

func TestLoad_Validation(t *testing.T) {
	f := &fakeFetcher{}
	m := newTestModel(f)

	_, err := m.Load(context.Background(), "", "1y", "1d")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = m.Load(context.Background(), "TCS.NS", "10y", "1d")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = m.Load(context.Background(), "TCS.NS", "1y", "5m")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	assert.Empty(t, f.calls)
}

func TestLoad_ErrorKeepsSnapshot(t *testing.T) {
	f := &fakeFetcher{}
	m := newTestModel(f)
	first, err := m.Load(context.Background(), "TCS.NS", "", "")
	require.NoError(t, err)

	f.err = errors.New("no data")
	_, err = m.Load(context.Background(), "NOPE.NS", "", "")
	assert.Error(t, err)
	assert.Same(t, first, m.Current())
}

func TestLoad_NewerLoadCancelsOlder(t *testing.T) {
	f := &fakeFetcher{block: map[string]bool{"SLOW.NS": true}, started: make(chan string, 2)}
	m := newTestModel(f)

	slowErr := make(chan error, 1)
	go func() {
		_, err := m.Load(context.Background(), "SLOW.NS", "", "")
		slowErr <- err
	}()
	assert.Equal(t, "SLOW.NS", <-f.started)

	snap, err := m.Load(context.Background(), "FAST.NS", "", "")
	require.NoError(t, err)
	assert.Equal(t, "FAST.NS", snap.Symbol)
	<-f.started

	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}
	assert.Equal(t, "FAST.NS", m.Current().Symbol)
}

func TestLoad_CallerCancellation(t *testing.T) {
	f := &fakeFetcher{block: map[string]bool{"SLOW.NS": true}}
	m := newTestModel(f)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Load(ctx, "SLOW.NS", "", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, m.Current())
}

func TestLoad_SeparateViewsDoNotSupersede(t *testing.T) {
	f := &fakeFetcher{block: map[string]bool{"SLOW.NS": true}, started: make(chan string, 2)}
	m := newTestModel(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slowErr := make(chan error, 1)
	go func() {
		_, err := m.Load(WithView(ctx, "tab-1"), "SLOW.NS", "", "")
		slowErr <- err
	}()
	assert.Equal(t, "SLOW.NS", <-f.started)

	snap, err := m.Load(WithView(context.Background(), "tab-2"), "FAST.NS", "", "")
	require.NoError(t, err)
	assert.Equal(t, "FAST.NS", snap.Symbol)
	<-f.started

	select {
	case err := <-slowErr:
		t.Fatalf("load in another view was interrupted: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Only its own caller can stop it.
	cancel()
	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not observe caller cancellation")
	}
}

func TestLoad_SameViewSupersedes(t *testing.T) {
	f := &fakeFetcher{block: map[string]bool{"SLOW.NS": true}, started: make(chan string, 2)}
	m := newTestModel(f)

	slowErr := make(chan error, 1)
	go func() {
		_, err := m.Load(WithView(context.Background(), "tab-1"), "SLOW.NS", "", "")
		slowErr <- err
	}()
	<-f.started

	_, err := m.Load(WithView(context.Background(), "tab-1"), "FAST.NS", "", "")
	require.NoError(t, err)
	<-f.started

	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}
}
