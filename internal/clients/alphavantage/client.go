// Package alphavantage provides a client for the Alpha Vantage quote API
// with daily rate limiting and two-level (memory + persistent) caching.
package alphavantage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/clientdata"
)

// dailyRequestLimit is the free-tier request budget per day.
const dailyRequestLimit = 25

// ErrRateLimitExceeded is returned when the daily request budget is spent.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("alpha vantage daily rate limit of %d requests exceeded", dailyRequestLimit)
}

// GlobalQuote is the parsed result of a GLOBAL_QUOTE call.
type GlobalQuote struct {
	Symbol string  `msgpack:"symbol"`
	Price  float64 `msgpack:"price"`
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client calls the Alpha Vantage API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	// cacheRepo is optional - if nil, only the in-memory cache is used
	cacheRepo *clientdata.Repository

	mu            sync.Mutex
	requestsToday int
	cache         map[string]cacheEntry
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://www.alphavantage.co/query",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "alphavantage").Logger(),
		cache:   make(map[string]cacheEntry),
	}
}

// SetCacheRepository wires the persistent quote cache. Optional.
func (c *Client) SetCacheRepository(repo *clientdata.Repository) {
	c.cacheRepo = repo
}

// GetGlobalQuote fetches the current quote for a symbol.
// Lookup order: memory cache, persistent cache, API. On API failure a
// stale persistent entry is returned if one exists (stale > nothing).
func (c *Client) GetGlobalQuote(symbol string) (*GlobalQuote, error) {
	params := map[string]string{"symbol": symbol}
	cacheKey := buildCacheKey("GLOBAL_QUOTE", params)

	if cached, ok := c.getFromCache(cacheKey); ok {
		if quote, ok := cached.(*GlobalQuote); ok {
			return quote, nil
		}
	}

	if c.cacheRepo != nil {
		var quote GlobalQuote
		found, err := c.cacheRepo.GetIfFresh(clientdata.SourceAlphaVantage, symbol, &quote)
		if err == nil && found {
			c.log.Debug().Str("symbol", symbol).Float64("price", quote.Price).Msg("Cache hit")
			c.setCache(cacheKey, &quote, clientdata.TTLQuote)
			return &quote, nil
		}
	}

	if err := c.checkRateLimit(); err != nil {
		return c.staleOrError(symbol, err)
	}

	reqURL := c.buildURL("GLOBAL_QUOTE", params)
	c.log.Debug().Str("symbol", symbol).Msg("Fetching quote")

	resp, err := c.client.Get(reqURL)
	if err != nil {
		return c.staleOrError(symbol, fmt.Errorf("API request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.staleOrError(symbol, fmt.Errorf("API returned status %d", resp.StatusCode))
	}

	var body struct {
		Note        string            `json:"Note"`
		Information string            `json:"Information"`
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return c.staleOrError(symbol, fmt.Errorf("failed to parse response: %w", err))
	}

	// The API signals rate limiting with a Note field and HTTP 200
	if body.Note != "" {
		c.log.Warn().Str("note", body.Note).Msg("Alpha Vantage rate limit note")
		return c.staleOrError(symbol, ErrRateLimitExceeded{})
	}
	if body.Information != "" {
		return c.staleOrError(symbol, fmt.Errorf("API rejected request: %s", body.Information))
	}

	priceStr, ok := body.GlobalQuote["05. price"]
	if !ok || priceStr == "" {
		return c.staleOrError(symbol, fmt.Errorf("no price data for %s", symbol))
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return c.staleOrError(symbol, fmt.Errorf("invalid price data for %s: %w", symbol, err))
	}

	quote := &GlobalQuote{Symbol: symbol, Price: price}

	c.setCache(cacheKey, quote, clientdata.TTLQuote)
	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.SourceAlphaVantage, symbol, quote, clientdata.TTLQuote); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist quote to cache")
		}
	}

	return quote, nil
}

// staleOrError falls back to a stale persistent cache entry, if any.
func (c *Client) staleOrError(symbol string, cause error) (*GlobalQuote, error) {
	if c.cacheRepo != nil {
		var quote GlobalQuote
		found, err := c.cacheRepo.GetStale(clientdata.SourceAlphaVantage, symbol, &quote)
		if err == nil && found {
			c.log.Warn().
				Err(cause).
				Str("symbol", symbol).
				Float64("price", quote.Price).
				Msg("API unavailable, using stale cached quote")
			return &quote, nil
		}
	}
	return nil, cause
}

// GetRemainingRequests returns how many API calls are left today.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return dailyRequestLimit - c.requestsToday
}

// ResetDailyCounter resets the daily request budget. Scheduled at midnight.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsToday = 0
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requestsToday >= dailyRequestLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestsToday++
	return nil
}

// In-memory cache

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// ClearCache drops all in-memory cache entries.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey builds a deterministic cache key from a function name
// and its parameters. The API key is never part of the key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := function
	for _, k := range keys {
		key += ":" + k + "=" + params[k]
	}
	return key
}

// buildURL assembles the request URL with the API key attached.
func (c *Client) buildURL(function string, params map[string]string) string {
	values := url.Values{}
	values.Set("function", function)
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("apikey", c.apiKey)
	return c.baseURL + "?" + values.Encode()
}
