// Command catalog-proxy exposes the PrimeCart catalog client over HTTP.
//
// The proxy fronts the catalog API with the client's rate limiting, circuit
// breaking and caching, so several consumers can share one daily quota.
//
// Configuration is taken from the environment:
//
//	PORT               HTTP listen port (default "8080")
//	LOG_LEVEL          debug, info, warn, error (default "info")
//	LOG_PRETTY         human-readable console output (default "false")
//	PARTNER_TAG        affiliate partner tag (default "primecart-demo-20")
//	ACCESS_KEY         API access key (live mode)
//	SECRET_KEY         API secret key (live mode)
//	MARKETPLACE        marketplace code, e.g. "US", "UK" (default "US")
//	MARKETPLACES_FILE  optional TOML file with extra marketplaces
//	REDIS_URL          optional Redis URL for the distributed cache tier
//	MOCK_MODE          serve fabricated data (default: true when no ACCESS_KEY)
//	MAX_PER_SECOND     token bucket refill rate (default 1.0)
//	MAX_PER_DAY        daily request quota (default 8000)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primecart/catalog-client/pkg/cache"
	"github.com/primecart/catalog-client/pkg/catalog"
	"github.com/primecart/catalog-client/pkg/health"
	"github.com/primecart/catalog-client/pkg/logging"
)

func main() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(getEnv("LOG_LEVEL", string(logCfg.Level)))
	logCfg.Pretty = getEnvBool("LOG_PRETTY", false)
	logging.Setup(logCfg)

	logger := logging.NewLogger("catalog-proxy")

	cacheManager := buildCache(logger)
	defer cacheManager.Close()

	cfg := catalog.DefaultConfig(getEnv("PARTNER_TAG", "primecart-demo-20"))
	cfg.AccessKey = getEnv("ACCESS_KEY", "")
	cfg.SecretKey = getEnv("SECRET_KEY", "")
	cfg.Marketplace = getEnv("MARKETPLACE", cfg.Marketplace)
	cfg.MockMode = getEnvBool("MOCK_MODE", cfg.AccessKey == "")
	cfg.MaxPerSecond = getEnvFloat("MAX_PER_SECOND", cfg.MaxPerSecond)
	cfg.MaxPerDay = getEnvInt("MAX_PER_DAY", cfg.MaxPerDay)
	cfg.Cache = cacheManager

	if path := getEnv("MARKETPLACES_FILE", ""); path != "" {
		table, err := catalog.LoadMarketplaces(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("Failed to load marketplaces file")
		}
		cfg.Marketplaces = table
	}

	client, err := catalog.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog client")
	}
	defer client.Close()

	checker := health.NewChecker(client.Limiter(), client.Breaker(), client.Cache())

	scheduler := cron.New()
	if err := scheduleJobs(scheduler, client, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule background jobs")
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler(checker))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", searchHandler(client))
	mux.HandleFunc("/items/", itemsHandler(client))

	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("port", port).
			Str("marketplace", client.Marketplace().Host).
			Bool("mock_mode", cfg.MockMode).
			Msg("Starting catalog proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

// buildCache creates the shared cache manager. When REDIS_URL is set but the
// server is unreachable, the proxy starts anyway with the local tier only.
func buildCache(logger zerolog.Logger) *cache.Manager {
	cacheCfg := cache.DefaultConfig()

	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.Addr).
				Msg("Redis unreachable, continuing with local cache only")
			rdb.Close()
		} else {
			cacheCfg.Redis = rdb
			logger.Info().Str("addr", opts.Addr).Msg("Distributed cache tier enabled")
		}
	}

	return cache.NewManager(cacheCfg)
}

// scheduleJobs registers the periodic quota snapshot and the nightly search
// cache sweep. Search results go stale within a day; product details keep
// their longer TTL and are left alone.
func scheduleJobs(scheduler *cron.Cron, client *catalog.Client, logger zerolog.Logger) error {
	_, err := scheduler.AddFunc("@every 30s", func() {
		stats := client.Limiter().Stats()
		breakerState := client.Breaker().State()
		logger.Info().
			Float64("tokens", stats.Tokens).
			Int("daily_used", stats.DailyUsed).
			Int("daily_limit", stats.DailyLimit).
			Str("reset_in", stats.ResetIn.Round(time.Second).String()).
			Str("breaker_state", breakerState.State.String()).
			Int("local_entries", client.Cache().Len()).
			Msg("Quota snapshot")
	})
	if err != nil {
		return fmt.Errorf("schedule quota snapshot: %w", err)
	}

	_, err = scheduler.AddFunc("30 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed := client.Cache().ClearNamespace(ctx, catalog.NamespaceSearch)
		logger.Info().Int("removed", removed).Msg("Nightly search cache sweep complete")
	})
	if err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}

	return nil
}

// healthzHandler reports the aggregated component health. Degraded still
// returns 200 so orchestrators keep routing traffic while quota runs low.
func healthzHandler(checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := checker.Check(r.Context())

		status := http.StatusOK
		if report.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

// searchHandler serves GET /search?q=...&index=...&count=...&min_price=...
// &max_price=...&min_saving=...&flags=Prime,FreeShipping.
func searchHandler(client *catalog.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		keywords := q.Get("q")
		if keywords == "" {
			writeError(w, http.StatusBadRequest, "query parameter q is required")
			return
		}

		req := catalog.SearchRequest{
			Keywords:         keywords,
			SearchIndex:      q.Get("index"),
			ItemCount:        atoiOr(q.Get("count"), 0),
			MinPrice:         atoiOr(q.Get("min_price"), 0),
			MaxPrice:         atoiOr(q.Get("max_price"), 0),
			MinSavingPercent: atoiOr(q.Get("min_saving"), 0),
		}
		if flags := q.Get("flags"); flags != "" {
			req.DeliveryFlags = strings.Split(flags, ",")
		}

		result, err := client.SearchItems(r.Context(), req)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// itemsHandler serves GET /items/{asin} where {asin} is a single ASIN or a
// comma-separated list of up to ten.
func itemsHandler(client *catalog.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, "/items/")

		var itemIDs []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				itemIDs = append(itemIDs, id)
			}
		}
		if len(itemIDs) == 0 {
			writeError(w, http.StatusBadRequest, "item ID is required in the path, e.g. /items/B0EXAMPLE01")
			return
		}

		result, err := client.GetItems(r.Context(), itemIDs)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// statusForError maps client errors onto proxy response codes. Local
// admission rejections keep their own codes so callers can tell "we are
// throttling you" from "the upstream is broken".
func statusForError(err error) int {
	switch {
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, catalog.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrRetryExhausted):
		return http.StatusBadGateway
	}

	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Class == catalog.ErrorClassClient {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return parsed
}
