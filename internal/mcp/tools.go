package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/niftyscope/internal/detail"
	"github.com/bobmcallan/niftyscope/internal/models"
	"github.com/bobmcallan/niftyscope/internal/search"
	"github.com/bobmcallan/niftyscope/internal/summary"
)

// WatchlistStore is the watchlist surface the tools use.
type WatchlistStore interface {
	Symbols() []string
	Add(ctx context.Context, symbol string) (bool, error)
	Remove(ctx context.Context, symbol string) (bool, error)
}

// SummarySource is the summary table surface the tools use.
type SummarySource interface {
	Refresh(ctx context.Context) error
	Rows() []models.SummaryRow
	SortConfig() models.SortConfig
	State() summary.State
}

// Market is the upstream market API surface the tools use.
type Market interface {
	Search(ctx context.Context, q string) ([]models.SearchResult, error)
	Details(ctx context.Context, symbol, period, interval string) (*models.DetailSeries, error)
	Health(ctx context.Context) error
}

// Deps are the components the tools operate on.
type Deps struct {
	Watchlist WatchlistStore
	Summary   SummarySource
	Market    Market

	// SearchMinLength is the shortest query search_stocks sends upstream.
	// A non-positive value uses search.DefaultMinLength.
	SearchMinLength int
}

func (d Deps) searchMinLength() int {
	if d.SearchMinLength <= 0 {
		return search.DefaultMinLength
	}
	return d.SearchMinLength
}

// RegisterTools adds every portal tool to s and returns their names.
func RegisterTools(s *server.MCPServer, deps Deps) []string {
	tools := []server.ServerTool{
		{Tool: getWatchlistTool(), Handler: getWatchlistHandler(deps)},
		{Tool: addToWatchlistTool(), Handler: addToWatchlistHandler(deps)},
		{Tool: removeFromWatchlistTool(), Handler: removeFromWatchlistHandler(deps)},
		{Tool: getSummaryTool(), Handler: getSummaryHandler(deps)},
		{Tool: searchStocksTool(deps.searchMinLength()), Handler: searchStocksHandler(deps)},
		{Tool: getStockDetailsTool(), Handler: getStockDetailsHandler(deps)},
		{Tool: VersionTool(), Handler: VersionToolHandler(deps.Market)},
	}

	names := make([]string, 0, len(tools))
	for _, t := range tools {
		s.AddTool(t.Tool, t.Handler)
		names = append(names, t.Tool.Name)
	}
	return names
}

func getWatchlistTool() mcp.Tool {
	return mcp.NewTool("get_watchlist",
		mcp.WithDescription("List the ticker symbols on the watchlist, in display order."),
	)
}

func getWatchlistHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]interface{}{"symbols": deps.Watchlist.Symbols()}), nil
	}
}

func addToWatchlistTool() mcp.Tool {
	return mcp.NewTool("add_to_watchlist",
		mcp.WithDescription("Add an NSE/BSE ticker (for example TCS.NS) to the end of the watchlist. Adding a symbol already present does nothing."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Ticker symbol, e.g. RELIANCE.NS")),
	)
}

func addToWatchlistHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := r.RequireString("symbol")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		added, err := deps.Watchlist.Add(ctx, symbol)
		if err != nil && !added {
			return errorResult(err.Error()), nil
		}
		return mutationResult("added", added, deps.Watchlist.Symbols(), err), nil
	}
}

func removeFromWatchlistTool() mcp.Tool {
	return mcp.NewTool("remove_from_watchlist",
		mcp.WithDescription("Remove a ticker symbol from the watchlist."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Ticker symbol to remove")),
	)
}

func removeFromWatchlistHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := r.RequireString("symbol")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		removed, err := deps.Watchlist.Remove(ctx, symbol)
		if err != nil && !removed {
			return errorResult(err.Error()), nil
		}
		return mutationResult("removed", removed, deps.Watchlist.Symbols(), err), nil
	}
}

func mutationResult(field string, changed bool, symbols []string, persistErr error) *mcp.CallToolResult {
	out := map[string]interface{}{
		field:     changed,
		"symbols": symbols,
	}
	if persistErr != nil {
		out["warning"] = persistErr.Error()
	}
	return jsonResult(out)
}

func getSummaryTool() mcp.Tool {
	return mcp.NewTool("get_summary",
		mcp.WithDescription("Get current price and percent change / traded range per lookback window for every watchlist symbol."),
		mcp.WithString("sort_key", mcp.Description("Sort by 'name' or an interval label such as 1d, 1w, 1m, 1y")),
		mcp.WithString("direction", mcp.Description("Sort direction"), mcp.Enum("asc", "desc")),
		mcp.WithBoolean("refresh", mcp.Description("Fetch fresh data before answering")),
	)
}

func getSummaryHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if r.GetBool("refresh", false) || deps.Summary.State().UpdatedAt.IsZero() {
			if err := deps.Summary.Refresh(ctx); err != nil && !errors.Is(err, summary.ErrSuperseded) {
				return errorResult(err.Error()), nil
			}
		}

		cfg := deps.Summary.SortConfig()
		if key := r.GetString("sort_key", ""); key != "" {
			if !models.IsValidSortKey(key) {
				return errorResult("invalid sort_key: " + key), nil
			}
			cfg = models.SortConfig{Key: key, Direction: models.SortAscending}
		}
		switch dir := models.SortDirection(strings.ToLower(r.GetString("direction", ""))); dir {
		case "":
		case models.SortAscending, models.SortDescending:
			cfg.Direction = dir
		default:
			return errorResult("invalid direction: " + string(dir)), nil
		}

		rows := deps.Summary.Rows()
		summary.SortRows(rows, cfg)
		return jsonResult(map[string]interface{}{
			"rows":  rows,
			"sort":  cfg,
			"state": deps.Summary.State(),
		}), nil
	}
}

func searchStocksTool(minLength int) mcp.Tool {
	return mcp.NewTool("search_stocks",
		mcp.WithDescription("Look up a ticker by name or symbol. Symbols without a suffix are searched on NSE."),
		mcp.WithString("query", mcp.Required(), mcp.Description(fmt.Sprintf("At least %d characters", minLength))),
	)
}

func searchStocksHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := r.RequireString("query")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		query = strings.TrimSpace(query)
		if utf8.RuneCountInString(query) < deps.searchMinLength() {
			return jsonResult(map[string]interface{}{"results": []models.SearchResult{}}), nil
		}
		results, err := deps.Market.Search(ctx, query)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(map[string]interface{}{"results": results}), nil
	}
}

func getStockDetailsTool() mcp.Tool {
	periods := make([]string, len(models.Periods))
	for i, p := range models.Periods {
		periods[i] = p.Value
	}
	intervals := make([]string, len(models.HistoryIntervals))
	for i, iv := range models.HistoryIntervals {
		intervals[i] = iv.Value
	}

	return mcp.NewTool("get_stock_details",
		mcp.WithDescription("Get price history with period high, low and change for one symbol."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Ticker symbol, e.g. INFY.NS")),
		mcp.WithString("period", mcp.Description("Lookback period (default 1y)"), mcp.Enum(periods...)),
		mcp.WithString("interval", mcp.Description("Sampling interval (default 1d)"), mcp.Enum(intervals...)),
		mcp.WithBoolean("include_history", mcp.Description("Include every candle, not just the stats")),
	)
}

func getStockDetailsHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := r.RequireString("symbol")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		period := r.GetString("period", models.DefaultPeriod)
		interval := r.GetString("interval", models.DefaultInterval)
		if !models.IsValidPeriod(period) {
			return errorResult("invalid period: " + period), nil
		}
		if !models.IsValidHistoryInterval(interval) {
			return errorResult("invalid interval: " + interval), nil
		}

		series, err := deps.Market.Details(ctx, symbol, period, interval)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		out := map[string]interface{}{
			"symbol":   series.Symbol,
			"name":     series.Name,
			"period":   period,
			"interval": interval,
			"points":   len(series.History),
		}
		if stats, ok := detail.ComputeStats(series.History); ok {
			out["stats"] = stats
		}
		if r.GetBool("include_history", false) {
			out["history"] = series.History
		}
		return jsonResult(out), nil
	}
}
