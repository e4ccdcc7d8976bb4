// Package catalog provides the PrimeCart catalog API client with rate
// limiting, circuit breaking, caching, and retry handling.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/primecart/catalog-client/pkg/breaker"
	"github.com/primecart/catalog-client/pkg/cache"
	"github.com/primecart/catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for catalog API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_api_requests_total",
		Help: "Total catalog API requests by operation and status",
	}, []string{"operation", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_api_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_api_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// Operation labels used in logs and metrics.
const (
	opSearchItems = "search_items"
	opGetItems    = "get_items"
)

// Client is the main catalog API client.
type Client struct {
	config      Config
	marketplace Marketplace
	baseURL     string

	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breaker    *breaker.Breaker
	cache      *cache.Manager
	ownsCache  bool

	logger zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Credentials (required unless MockMode is set)
	AccessKey string
	SecretKey string

	// PartnerTag is appended to every affiliate URL (REQUIRED).
	PartnerTag string

	// Marketplace code, e.g. "US", "IN", "UK", "JP".
	Marketplace string

	// Marketplaces replaces the builtin marketplace table when non-nil.
	Marketplaces map[string]Marketplace

	// Rate Limiting
	MaxPerSecond float64 // sustained requests per second, also the burst capacity
	MaxPerDay    int     // requests per fixed 24h window

	// Circuit Breaker
	BreakerThreshold int           // failures before the circuit opens
	BreakerTimeout   time.Duration // cooldown before a probe request is allowed

	// Caching
	Cache      *cache.Manager // shared cache manager; built internally when nil
	SearchTTL  time.Duration
	ProductTTL time.Duration

	// MockMode serves fabricated data without contacting the live API.
	// Admission control still applies so integrations exercise real budgets.
	MockMode bool

	// HTTP
	HTTPTimeout time.Duration
	BaseURL     string       // endpoint override, mainly for tests
	HTTPClient  *http.Client // transport override, mainly for tests

	// Pre-built collaborators. When nil they are constructed from the
	// budget fields above; supplying them lets several clients share one
	// limiter or breaker.
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker
}

// DefaultConfig returns a safe default configuration. MockMode is on so a
// fresh integration works before credentials are provisioned.
func DefaultConfig(partnerTag string) Config {
	return Config{
		PartnerTag:       partnerTag,
		Marketplace:      "US",
		MaxPerSecond:     1.0,
		MaxPerDay:        8000,
		BreakerThreshold: 5,
		BreakerTimeout:   60 * time.Second,
		SearchTTL:        SearchTTL,
		ProductTTL:       ProductTTL,
		MockMode:         true,
		HTTPTimeout:      30 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.PartnerTag == "" {
		return nil, fmt.Errorf("partner_tag is required")
	}

	if !cfg.MockMode && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, fmt.Errorf("access_key and secret_key are required unless mock_mode is set")
	}

	if cfg.Limiter == nil {
		if cfg.MaxPerSecond <= 0 {
			return nil, fmt.Errorf("max_per_second must be positive (got %g)", cfg.MaxPerSecond)
		}
		if cfg.MaxPerDay <= 0 {
			return nil, fmt.Errorf("max_per_day must be positive (got %d)", cfg.MaxPerDay)
		}
	}

	if cfg.Breaker == nil {
		if cfg.BreakerThreshold <= 0 {
			return nil, fmt.Errorf("breaker_threshold must be positive (got %d)", cfg.BreakerThreshold)
		}
		if cfg.BreakerTimeout <= 0 {
			return nil, fmt.Errorf("breaker_timeout must be positive (got %s)", cfg.BreakerTimeout)
		}
	}

	// Initialize logger
	logger := log.With().Str("component", "catalog-client").Logger()

	// Resolve marketplace
	table := builtinMarketplaces
	if cfg.Marketplaces != nil {
		table = cfg.Marketplaces
	}
	code := cfg.Marketplace
	if code == "" {
		code = "US"
	}
	marketplace, ok := table[code]
	if !ok {
		logger.Warn().
			Str("marketplace", code).
			Msg("Unknown marketplace, falling back to US")
		marketplace = builtinMarketplaces["US"]
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + marketplace.Host
	}

	// Build collaborators that were not injected
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New(cfg.MaxPerSecond, cfg.MaxPerDay)
	}

	brk := cfg.Breaker
	if brk == nil {
		brk = breaker.New(cfg.BreakerThreshold, cfg.BreakerTimeout)
	}

	cacheManager := cfg.Cache
	ownsCache := false
	if cacheManager == nil {
		cacheManager = cache.NewManager(cache.DefaultConfig())
		ownsCache = true
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = SearchTTL
	}
	if cfg.ProductTTL <= 0 {
		cfg.ProductTTL = ProductTTL
	}

	if cfg.MockMode {
		logger.Warn().Msg("Running in mock mode, returning fabricated data")
	}

	return &Client{
		config:      cfg,
		marketplace: marketplace,
		baseURL:     baseURL,
		httpClient:  httpClient,
		limiter:     limiter,
		breaker:     brk,
		cache:       cacheManager,
		ownsCache:   ownsCache,
		logger:      logger,
	}, nil
}

// SearchItems searches the catalog for products matching the request.
// Results are served from cache when possible; misses go through rate
// limiting, circuit breaking, and retry before reaching the API.
func (c *Client) SearchItems(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	logger := c.logger.With().
		Str("operation", opSearchItems).
		Str("request_id", uuid.NewString()).
		Logger()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(opSearchItems).Observe(time.Since(startTime).Seconds())
	}()

	if req.Keywords == "" {
		return nil, fmt.Errorf("search items: keywords are required")
	}

	// Step 1: Normalize the item count
	if req.ItemCount <= 0 || req.ItemCount > maxItemsPerCall {
		req.ItemCount = maxItemsPerCall
	}

	// Step 2: Check cache
	key := req.cacheKey()
	if raw, ok := c.cache.Get(ctx, key, NamespaceSearch); ok {
		var result SearchResult
		if err := json.Unmarshal(raw, &result); err != nil {
			logger.Warn().Err(err).Msg("Discarding corrupt cached search result")
		} else {
			logger.Debug().
				Str("keywords", req.Keywords).
				Msg("Search served from cache")
			return &result, nil
		}
	}

	// Step 3: Fetch from the API
	result, err := c.fetchSearch(ctx, logger, req)
	if err != nil {
		return nil, err
	}

	// Step 4: Cache the result
	c.cache.Set(ctx, key, result, NamespaceSearch, c.config.SearchTTL)

	logger.Info().
		Str("keywords", req.Keywords).
		Int("items", len(result.Items)).
		Msg("Search completed")

	return result, nil
}

// GetItems fetches details for up to ten item IDs. Each item is cached
// individually so partial cache hits shrink the upstream request.
func (c *Client) GetItems(ctx context.Context, itemIDs []string) (*ItemsResult, error) {
	logger := c.logger.With().
		Str("operation", opGetItems).
		Str("request_id", uuid.NewString()).
		Logger()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(opGetItems).Observe(time.Since(startTime).Seconds())
	}()

	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("get items: no item IDs given")
	}
	if len(itemIDs) > maxItemsPerCall {
		logger.Warn().
			Int("requested", len(itemIDs)).
			Int("limit", maxItemsPerCall).
			Msg("Too many item IDs, truncating")
		itemIDs = itemIDs[:maxItemsPerCall]
	}

	// Step 1: Serve what we can from cache
	items := make(map[string]Item, len(itemIDs))
	var missing []string
	for _, asin := range itemIDs {
		raw, ok := c.cache.Get(ctx, itemKey(asin), NamespaceProducts)
		if !ok {
			missing = append(missing, asin)
			continue
		}
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.Warn().Err(err).Str("asin", asin).Msg("Discarding corrupt cached item")
			missing = append(missing, asin)
			continue
		}
		items[asin] = item
	}

	if len(missing) == 0 {
		logger.Debug().
			Int("items", len(items)).
			Msg("All items served from cache")
		return &ItemsResult{Items: items}, nil
	}

	// Step 2: Fetch the rest from the API
	fetched, err := c.fetchItems(ctx, logger, missing)
	if err != nil {
		return nil, err
	}

	// Step 3: Merge and cache the fetched items
	for asin, item := range fetched.Items {
		items[asin] = item
		c.cache.Set(ctx, itemKey(asin), item, NamespaceProducts, c.config.ProductTTL)
	}

	logger.Info().
		Int("from_cache", len(items)-len(fetched.Items)).
		Int("fetched", len(fetched.Items)).
		Msg("Item lookup completed")

	return &ItemsResult{Items: items}, nil
}

// fetchSearch performs the upstream search call, or fabricates one in mock
// mode. Mock mode still passes admission control but records nothing on the
// breaker since no upstream outcome was observed.
func (c *Client) fetchSearch(ctx context.Context, logger zerolog.Logger, req SearchRequest) (*SearchResult, error) {
	if c.config.MockMode {
		if err := c.admit(logger, opSearchItems); err != nil {
			return nil, err
		}
		apiRequestsTotal.WithLabelValues(opSearchItems, "mock").Inc()
		return c.mockSearchItems(req), nil
	}

	wireReq := wireSearchRequest{
		Keywords:         req.Keywords,
		SearchIndex:      req.SearchIndex,
		ItemCount:        req.ItemCount,
		MinPrice:         req.MinPrice,
		MaxPrice:         req.MaxPrice,
		MinSavingPercent: req.MinSavingPercent,
		DeliveryFlags:    req.DeliveryFlags,
		PartnerTag:       c.config.PartnerTag,
	}

	var result *SearchResult
	err := retryWithBackoff(ctx, logger, func() error {
		if err := c.admit(logger, opSearchItems); err != nil {
			return err
		}

		var resp wireSearchResponse
		if err := c.postJSON(ctx, logger, opSearchItems, searchPath, wireReq, &resp); err != nil {
			c.breaker.RecordFailure()
			return err
		}
		c.breaker.RecordSuccess()

		out := &SearchResult{Items: []Item{}}
		if resp.SearchResult != nil {
			out.TotalResults = resp.SearchResult.TotalResultCount
			out.SearchURL = resp.SearchResult.SearchURL
			out.Items = make([]Item, 0, len(resp.SearchResult.Items))
			for _, w := range resp.SearchResult.Items {
				out.Items = append(out.Items, c.shapeItem(w))
			}
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// fetchItems performs the upstream item lookup, or fabricates one in mock mode.
func (c *Client) fetchItems(ctx context.Context, logger zerolog.Logger, itemIDs []string) (*ItemsResult, error) {
	if c.config.MockMode {
		if err := c.admit(logger, opGetItems); err != nil {
			return nil, err
		}
		apiRequestsTotal.WithLabelValues(opGetItems, "mock").Inc()
		return c.mockGetItems(itemIDs), nil
	}

	wireReq := wireItemsRequest{
		ItemIDs:    itemIDs,
		PartnerTag: c.config.PartnerTag,
	}

	var result *ItemsResult
	err := retryWithBackoff(ctx, logger, func() error {
		if err := c.admit(logger, opGetItems); err != nil {
			return err
		}

		var resp wireItemsResponse
		if err := c.postJSON(ctx, logger, opGetItems, itemsPath, wireReq, &resp); err != nil {
			c.breaker.RecordFailure()
			return err
		}
		c.breaker.RecordSuccess()

		out := &ItemsResult{Items: make(map[string]Item)}
		if resp.ItemsResult != nil {
			for _, w := range resp.ItemsResult.Items {
				out.Items[w.ASIN] = c.shapeItemDetailed(w)
			}
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// admit runs the local admission gates. The limiter is checked before the
// breaker so a rate limited request never consumes a half-open probe.
func (c *Client) admit(logger zerolog.Logger, operation string) error {
	if !c.limiter.Acquire() {
		logger.Warn().Msg("Request blocked by rate limiter")
		apiRequestsTotal.WithLabelValues(operation, "rate_limited").Inc()
		return ErrRateLimited
	}

	if !c.breaker.Allow() {
		logger.Warn().Msg("Request blocked by open circuit breaker")
		apiRequestsTotal.WithLabelValues(operation, "circuit_open").Inc()
		return ErrCircuitOpen
	}

	return nil
}

// postJSON sends one POST request and decodes the response into out. Upstream
// faults come back as *APIError so the retry loop can classify them.
func (c *Client) postJSON(ctx context.Context, logger zerolog.Logger, operation, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Key", c.config.AccessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		apiRequestsTotal.WithLabelValues(operation, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		message := resp.Status
		if m := firstWireError(resp.Body); m != "" {
			message = m
		}

		logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Str("message", message).
			Msg("Catalog API error")

		return &APIError{StatusCode: resp.StatusCode, Class: class, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		logger.Error().Err(err).Str("path", path).Msg("Malformed response body")
		return &APIError{StatusCode: resp.StatusCode, Class: ErrorClassServer, Message: "malformed response body", Err: err}
	}

	apiRequestsTotal.WithLabelValues(operation, "200").Inc()
	return nil
}

// firstWireError extracts the first error message from an error response
// body, reading at most a few KB.
func firstWireError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	var resp struct {
		Errors []wireError `json:"errors"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Errors) == 0 {
		return ""
	}

	e := resp.Errors[0]
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// affiliateURL builds the tagged storefront link for an item.
func (c *Client) affiliateURL(asin string) string {
	return fmt.Sprintf("https://www.%s/dp/%s?tag=%s", c.marketplace.Domain, asin, c.config.PartnerTag)
}

// Limiter returns the rate limiter, for health checks and introspection.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Breaker returns the circuit breaker, for health checks and introspection.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// Cache returns the cache manager.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Marketplace returns the resolved marketplace.
func (c *Client) Marketplace() Marketplace {
	return c.marketplace
}

// Close releases resources owned by the client. A cache manager supplied
// through Config.Cache is left untouched.
func (c *Client) Close() error {
	if c.ownsCache {
		return c.cache.Close()
	}
	return nil
}
