package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
	"github.com/bobmcallan/niftyscope/internal/summary"
)

type fakeWatchlist struct {
	mu      sync.Mutex
	symbols []string
	saveErr error
}

func (f *fakeWatchlist) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...)
}

func (f *fakeWatchlist) Add(_ context.Context, symbol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, errors.New("invalid symbol")
	}
	for _, s := range f.symbols {
		if s == symbol {
			return false, nil
		}
	}
	f.symbols = append(f.symbols, symbol)
	return true, f.saveErr
}

func (f *fakeWatchlist) Remove(_ context.Context, symbol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.symbols {
		if s == symbol {
			f.symbols = append(f.symbols[:i], f.symbols[i+1:]...)
			return true, f.saveErr
		}
	}
	return false, nil
}

type fakeSummary struct {
	rows       []models.SummaryRow
	sort       models.SortConfig
	refreshes  int
	refreshErr error
	updatedAt  time.Time
}

func (f *fakeSummary) Refresh(_ context.Context) error {
	f.refreshes++
	if f.refreshErr == nil {
		f.updatedAt = time.Now()
	}
	return f.refreshErr
}

func (f *fakeSummary) Rows() []models.SummaryRow {
	return append([]models.SummaryRow(nil), f.rows...)
}

func (f *fakeSummary) SortConfig() models.SortConfig { return f.sort }

func (f *fakeSummary) State() summary.State {
	return summary.State{UpdatedAt: f.updatedAt, RowCount: len(f.rows)}
}

type fakeMarket struct {
	searches  []string
	detailErr error
	healthErr error
}

func (f *fakeMarket) Search(_ context.Context, q string) ([]models.SearchResult, error) {
	f.searches = append(f.searches, q)
	return []models.SearchResult{{Symbol: "TCS.NS", Name: "Tata Consultancy"}}, nil
}

func (f *fakeMarket) Details(_ context.Context, symbol, period, interval string) (*models.DetailSeries, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	var series models.DetailSeries
	raw := `{"symbol":"` + symbol + `","name":"Tata","history":[
		{"time":"2024-01-01 00:00:00","open":10,"high":10,"low":5,"close":8},
		{"time":"2024-01-02 00:00:00","open":8,"high":15,"low":2,"close":12}]}`
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (f *fakeMarket) Health(_ context.Context) error { return f.healthErr }

func row(t *testing.T, raw string) models.SummaryRow {
	t.Helper()
	var r models.SummaryRow
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func newDeps(t *testing.T) (Deps, *fakeWatchlist, *fakeSummary, *fakeMarket) {
	t.Helper()
	wl := &fakeWatchlist{symbols: []string{"TCS.NS", "INFY.NS"}}
	sum := &fakeSummary{
		sort: models.DefaultSortConfig(),
		rows: []models.SummaryRow{
			row(t, `{"symbol":"TCS.NS","name":"TCS","current_price":3900,"1d":{"pct":1.5,"range":"1 - 2"}}`),
			row(t, `{"symbol":"INFY.NS","name":"Infosys","current_price":1500,"1d":{"pct":-0.5,"range":"1 - 2"}}`),
		},
		updatedAt: time.Now(),
	}
	market := &fakeMarket{}
	return Deps{Watchlist: wl, Summary: sum, Market: market}, wl, sum, market
}

func call(args map[string]interface{}) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{Params: mcpgo.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return text.Text
}

func decode(t *testing.T, result *mcpgo.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestGetWatchlist(t *testing.T) {
	deps, _, _, _ := newDeps(t)

	result, err := getWatchlistHandler(deps)(context.Background(), call(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []interface{}{"TCS.NS", "INFY.NS"}, decode(t, result)["symbols"])
}

func TestAddToWatchlist(t *testing.T) {
	deps, wl, _, _ := newDeps(t)
	handler := addToWatchlistHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"symbol": "wipro.ns"}))
	require.NoError(t, err)
	out := decode(t, result)
	assert.Equal(t, true, out["added"])
	assert.Equal(t, []string{"TCS.NS", "INFY.NS", "WIPRO.NS"}, wl.Symbols())

	result, err = handler(context.Background(), call(map[string]interface{}{"symbol": "TCS.NS"}))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, result)["added"])
}

func TestAddToWatchlist_MissingSymbol(t *testing.T) {
	deps, _, _, _ := newDeps(t)

	result, err := addToWatchlistHandler(deps)(context.Background(), call(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAddToWatchlist_PersistWarning(t *testing.T) {
	deps, wl, _, _ := newDeps(t)
	wl.saveErr = errors.New("disk full")

	result, err := addToWatchlistHandler(deps)(context.Background(), call(map[string]interface{}{"symbol": "HDFC.NS"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	out := decode(t, result)
	assert.Equal(t, true, out["added"])
	assert.Equal(t, "disk full", out["warning"])
}

func TestRemoveFromWatchlist(t *testing.T) {
	deps, wl, _, _ := newDeps(t)
	handler := removeFromWatchlistHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"symbol": "TCS.NS"}))
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, result)["removed"])
	assert.Equal(t, []string{"INFY.NS"}, wl.Symbols())

	result, err = handler(context.Background(), call(map[string]interface{}{"symbol": "TCS.NS"}))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, result)["removed"])
}

func TestGetSummary_DefaultSort(t *testing.T) {
	deps, _, sum, _ := newDeps(t)

	result, err := getSummaryHandler(deps)(context.Background(), call(nil))
	require.NoError(t, err)
	out := decode(t, result)
	rows := out["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "INFY.NS", rows[0].(map[string]interface{})["symbol"])
	assert.Equal(t, 0, sum.refreshes)
}

func TestGetSummary_SortKeyAndDirection(t *testing.T) {
	deps, _, sum, _ := newDeps(t)

	result, err := getSummaryHandler(deps)(context.Background(), call(map[string]interface{}{
		"sort_key":  "1d",
		"direction": "desc",
	}))
	require.NoError(t, err)
	out := decode(t, result)
	rows := out["rows"].([]interface{})
	assert.Equal(t, "TCS.NS", rows[0].(map[string]interface{})["symbol"])
	assert.Equal(t, map[string]interface{}{"key": "1d", "direction": "desc"}, out["sort"])

	// The shared table sort is untouched.
	assert.Equal(t, models.DefaultSortConfig(), sum.SortConfig())
}

func TestGetSummary_InvalidArguments(t *testing.T) {
	deps, _, _, _ := newDeps(t)
	handler := getSummaryHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"sort_key": "price"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handler(context.Background(), call(map[string]interface{}{"direction": "sideways"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetSummary_RefreshesWhenNeverLoaded(t *testing.T) {
	deps, _, sum, _ := newDeps(t)
	sum.updatedAt = time.Time{}

	_, err := getSummaryHandler(deps)(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.refreshes)

	_, err = getSummaryHandler(deps)(context.Background(), call(map[string]interface{}{"refresh": true}))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.refreshes)
}

func TestGetSummary_RefreshError(t *testing.T) {
	deps, _, sum, _ := newDeps(t)
	sum.refreshErr = errors.New("upstream down")

	result, err := getSummaryHandler(deps)(context.Background(), call(map[string]interface{}{"refresh": true}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "upstream down")
}

func TestSearchStocks(t *testing.T) {
	deps, _, _, market := newDeps(t)
	handler := searchStocksHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"query": "tc"}))
	require.NoError(t, err)
	assert.Empty(t, decode(t, result)["results"])
	assert.Empty(t, market.searches)

	result, err = handler(context.Background(), call(map[string]interface{}{"query": " tata "}))
	require.NoError(t, err)
	results := decode(t, result)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, []string{"tata"}, market.searches)
}

func TestSearchStocks_ConfiguredMinLength(t *testing.T) {
	deps, _, _, market := newDeps(t)
	deps.SearchMinLength = 5
	handler := searchStocksHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"query": "tata"}))
	require.NoError(t, err)
	assert.Empty(t, decode(t, result)["results"])
	assert.Empty(t, market.searches)

	result, err = handler(context.Background(), call(map[string]interface{}{"query": "tatam"}))
	require.NoError(t, err)
	assert.Len(t, decode(t, result)["results"], 1)
	assert.Equal(t, []string{"tatam"}, market.searches)

	tool := searchStocksTool(deps.searchMinLength())
	prop, ok := tool.InputSchema.Properties["query"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "At least 5 characters", prop["description"])
}

func TestGetStockDetails(t *testing.T) {
	deps, _, _, _ := newDeps(t)

	result, err := getStockDetailsHandler(deps)(context.Background(), call(map[string]interface{}{"symbol": "tcs.ns"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	out := decode(t, result)
	assert.Equal(t, "TCS.NS", out["symbol"])
	assert.Equal(t, "1y", out["period"])
	assert.Equal(t, "1d", out["interval"])
	assert.EqualValues(t, 2, out["points"])
	assert.NotContains(t, out, "history")

	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, "15", stats["high"])
	assert.Equal(t, "2", stats["low"])
}

func TestGetStockDetails_IncludeHistory(t *testing.T) {
	deps, _, _, _ := newDeps(t)

	result, err := getStockDetailsHandler(deps)(context.Background(), call(map[string]interface{}{
		"symbol":          "TCS.NS",
		"period":          "6mo",
		"interval":        "1wk",
		"include_history": true,
	}))
	require.NoError(t, err)
	out := decode(t, result)
	assert.Len(t, out["history"], 2)
}

func TestGetStockDetails_Errors(t *testing.T) {
	deps, _, _, market := newDeps(t)
	handler := getStockDetailsHandler(deps)

	result, err := handler(context.Background(), call(map[string]interface{}{"symbol": "TCS.NS", "period": "10y"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handler(context.Background(), call(map[string]interface{}{"symbol": "TCS.NS", "interval": "1m"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	market.detailErr = errors.New("symbol not found")
	result, err = handler(context.Background(), call(map[string]interface{}{"symbol": "NOPE.NS"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestVersionTool(t *testing.T) {
	market := &fakeMarket{}

	result, err := VersionToolHandler(market)(context.Background(), call(nil))
	require.NoError(t, err)
	out := decode(t, result)
	assert.Equal(t, "ok", out["upstream_api"])
	assert.NotEmpty(t, out["version"])

	market.healthErr = errors.New("refused")
	result, err = VersionToolHandler(market)(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, "down", decode(t, result)["upstream_api"])
}

func TestRegisterTools_ListedByServer(t *testing.T) {
	deps, _, _, _ := newDeps(t)
	s := mcpserver.NewMCPServer("test", "1.0", mcpserver.WithToolCapabilities(true))
	names := RegisterTools(s, deps)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	resp, ok := s.HandleMessage(t.Context(), msg).(mcpgo.JSONRPCResponse)
	require.True(t, ok)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var listed mcpgo.ListToolsResult
	require.NoError(t, json.Unmarshal(raw, &listed))

	got := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		got = append(got, tool.Name)
	}
	assert.ElementsMatch(t, names, got)
	assert.ElementsMatch(t, []string{
		"get_watchlist", "add_to_watchlist", "remove_from_watchlist",
		"get_summary", "search_stocks", "get_stock_details", "get_version",
	}, got)
}

func TestRegisterTools_CallThroughServer(t *testing.T) {
	deps, wl, _, _ := newDeps(t)
	s := mcpserver.NewMCPServer("test", "1.0", mcpserver.WithToolCapabilities(true))
	RegisterTools(s, deps)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add_to_watchlist","arguments":{"symbol":"sbin.ns"}}}`)
	_, ok := s.HandleMessage(t.Context(), msg).(mcpgo.JSONRPCResponse)
	require.True(t, ok)
	assert.Contains(t, wl.Symbols(), "SBIN.NS")
}

func TestHandler_Initialize(t *testing.T) {
	deps, _, _, _ := newDeps(t)
	h := NewHandler(deps, common.NewSilentLogger())
	assert.Len(t, h.Tools(), 7)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "niftyscope-portal")
}
