// Package client talks to the upstream market-data API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bobmcallan/niftyscope/internal/cache"
	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/models"
)

// maxResponseBytes caps every upstream response body.
const maxResponseBytes = 10 << 20

// ErrNotFound is returned when upstream has no data for the requested symbol.
var ErrNotFound = errors.New("not found")

// UpstreamError is a non-2xx response other than 404.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("market api returned %d: %s", e.StatusCode, e.Message)
}

// MarketClient communicates with the market-data REST API.
// Each call is a single attempt; callers decide whether to retry.
type MarketClient struct {
	http   *resty.Client
	cache  *cache.ResponseCache
	logger *common.Logger
}

// NewMarketClient creates a client targeting baseURL (for example http://localhost:8000/api).
// A nil cache disables response caching.
func NewMarketClient(baseURL string, timeout time.Duration, respCache *cache.ResponseCache, logger *common.Logger) *MarketClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetResponseBodyLimit(maxResponseBytes).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", config.UserAgent())

	return &MarketClient{
		http:   httpClient,
		cache:  respCache,
		logger: logger,
	}
}

// Search looks up tickers matching q.
// GET /search/?q=... -> [{symbol, name, type}]
func (c *MarketClient) Search(ctx context.Context, q string) ([]models.SearchResult, error) {
	query := url.Values{"q": []string{q}}
	body, err := c.cachedGet(ctx, "/search/", query)
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return results, nil
}

// Summary fetches current price and interval changes for symbols.
// POST /summary/ {"symbols": [...]} -> [SummaryRow]. Never cached.
func (c *MarketClient) Summary(ctx context.Context, symbols []string) ([]models.SummaryRow, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string][]string{"symbols": symbols}).
		Post("/summary/")
	if err != nil {
		return nil, fmt.Errorf("failed to reach market api: %w", err)
	}
	if err := checkStatus(resp.StatusCode(), resp.Body()); err != nil {
		return nil, err
	}

	var rows []models.SummaryRow
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}

	c.logger.Debug().Int("requested", len(symbols)).Int("returned", len(rows)).Msg("Summary fetched")
	return rows, nil
}

// Details fetches price history for symbol.
// GET /details/{symbol}/?period=&interval= -> DetailSeries. 404 -> ErrNotFound.
func (c *MarketClient) Details(ctx context.Context, symbol, period, interval string) (*models.DetailSeries, error) {
	query := url.Values{}
	query.Set("period", period)
	query.Set("interval", interval)

	body, err := c.cachedGet(ctx, detailsPath(symbol), query)
	if err != nil {
		return nil, err
	}

	var series models.DetailSeries
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("failed to parse details response: %w", err)
	}
	return &series, nil
}

// Forget drops cached detail responses for symbol.
func (c *MarketClient) Forget(symbol string) {
	c.cache.InvalidatePrefix(detailsPath(symbol))
}

// Health probes the upstream API with an empty search, which upstream answers with [].
func (c *MarketClient) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/search/")
	if err != nil {
		return fmt.Errorf("failed to reach market api: %w", err)
	}
	return checkStatus(resp.StatusCode(), resp.Body())
}

func detailsPath(symbol string) string {
	return "/details/" + url.PathEscape(symbol) + "/"
}

// cachedGet issues a GET, serving and filling the response cache.
func (c *MarketClient) cachedGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	full := path
	if encoded := query.Encode(); encoded != "" {
		full += "?" + encoded
	}
	key := cache.MakeKey(http.MethodGet, full)

	if cached, ok := c.cache.Get(key); ok {
		c.logger.Trace().Str("key", key).Msg("Market api cache hit")
		return cached.Body, checkStatus(cached.StatusCode, cached.Body)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reach market api: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() == http.StatusOK {
		c.cache.Set(key, &cache.CachedResponse{StatusCode: resp.StatusCode(), Body: body})
	}
	if err := checkStatus(resp.StatusCode(), body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps a response status to ErrNotFound or an *UpstreamError.
func checkStatus(status int, body []byte) error {
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, upstreamMessage(body))
	}
	if status < 200 || status >= 300 {
		return &UpstreamError{StatusCode: status, Message: upstreamMessage(body)}
	}
	return nil
}

// upstreamMessage extracts {"error": "..."} from an error body, falling back to the raw text.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
