package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLocalCapacity is the default entry bound of the local tier.
	DefaultLocalCapacity = 1000

	// DefaultLocalTTL is the fixed expiry applied to every local tier entry.
	DefaultLocalTTL = 1 * time.Hour

	// DefaultDistributedTTL is used for distributed writes when Set is
	// called with ttl 0.
	DefaultDistributedTTL = 1 * time.Hour

	// DefaultOpTimeout bounds a single distributed tier operation.
	DefaultOpTimeout = 2 * time.Second

	// scanBatch is the COUNT hint for namespace scans.
	scanBatch = 100
)

// Config holds cache manager configuration.
type Config struct {
	// Redis is the distributed tier client. Nil disables the distributed
	// tier; the manager then runs local-only.
	Redis *redis.Client

	// LocalCapacity is the maximum number of local tier entries before
	// least-recently-used eviction kicks in.
	LocalCapacity int

	// LocalTTL is the fixed expiry applied to all local tier entries,
	// regardless of the per-call TTL passed to Set.
	LocalTTL time.Duration

	// DefaultTTL is the distributed tier expiry used when Set receives
	// ttl 0.
	DefaultTTL time.Duration

	// OpTimeout bounds each distributed tier call.
	OpTimeout time.Duration

	// Logger receives cache diagnostics.
	Logger zerolog.Logger
}

// DefaultConfig returns a cache configuration with sensible defaults and no
// distributed tier.
func DefaultConfig() Config {
	return Config{
		LocalCapacity: DefaultLocalCapacity,
		LocalTTL:      DefaultLocalTTL,
		DefaultTTL:    DefaultDistributedTTL,
		OpTimeout:     DefaultOpTimeout,
		Logger:        log.With().Str("component", "cache").Logger(),
	}
}

// Manager is a two-tier cache: a bounded in-process LRU in front of an
// optional Redis tier. The distributed tier is a shared external resource
// that may vanish at any time; every fault there is logged and absorbed as
// a miss, never surfaced to the caller.
type Manager struct {
	local      *localStore
	redis      *redis.Client
	defaultTTL time.Duration
	opTimeout  time.Duration
	logger     zerolog.Logger
}

// NewManager creates a cache manager. Zero or negative sizing fields fall
// back to package defaults; a nil Redis client yields a local-only manager.
func NewManager(cfg Config) *Manager {
	if cfg.LocalCapacity <= 0 {
		cfg.LocalCapacity = DefaultLocalCapacity
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = DefaultLocalTTL
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultDistributedTTL
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}

	return &Manager{
		local:      newLocalStore(cfg.LocalCapacity, cfg.LocalTTL),
		redis:      cfg.Redis,
		defaultTTL: cfg.DefaultTTL,
		opTimeout:  cfg.OpTimeout,
		logger:     cfg.Logger,
	}
}

// Get looks up a value, fastest tier first. A distributed hit is written
// through to the local tier. The boolean reports presence; all distributed
// tier errors degrade to a miss.
func (m *Manager) Get(ctx context.Context, key, namespace string) ([]byte, bool) {
	ck := compositeKey(namespace, key)

	// 1. Local tier, no I/O.
	if data, ok := m.local.get(ck); ok {
		CacheHits.WithLabelValues("local").Inc()
		m.logger.Debug().
			Str("namespace", namespace).
			Str("tier", "local").
			Msg("Cache hit")
		return data, true
	}

	if m.redis == nil {
		CacheMisses.Inc()
		return nil, false
	}

	// 2. Distributed tier, bounded by the op timeout.
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	data, err := m.redis.Get(opCtx, ck).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().
				Err(err).
				Str("namespace", namespace).
				Msg("Distributed cache get failed, treating as miss")
		}
		CacheMisses.Inc()
		return nil, false
	}

	// 3. Write through so the next lookup stays in memory.
	m.local.set(ck, data)

	CacheHits.WithLabelValues("distributed").Inc()
	m.logger.Debug().
		Str("namespace", namespace).
		Str("tier", "distributed").
		Msg("Cache hit")
	return data, true
}

// Set stores a value in both tiers. The value is JSON-marshaled once; the
// local tier applies its fixed TTL while the distributed tier honors ttl
// (0 means the configured default). Failures are logged and swallowed.
func (m *Manager) Set(ctx context.Context, key string, value any, namespace string, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("marshal").Inc()
		m.logger.Error().
			Err(err).
			Str("namespace", namespace).
			Msg("Cache value not serializable, skipping store")
		return
	}

	ck := compositeKey(namespace, key)

	// Local insert is unconditional; eviction is the store's problem.
	m.local.set(ck, data)

	if m.redis == nil {
		return
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	if err := m.redis.Set(opCtx, ck, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().
			Err(err).
			Str("namespace", namespace).
			Msg("Distributed cache set failed")
	}
}

// Delete removes a key from both tiers. Absence in either tier is success.
func (m *Manager) Delete(ctx context.Context, key, namespace string) {
	ck := compositeKey(namespace, key)

	m.local.delete(ck)

	if m.redis == nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	if err := m.redis.Del(opCtx, ck).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		m.logger.Warn().
			Err(err).
			Str("namespace", namespace).
			Msg("Distributed cache delete failed")
	}
}

// ClearNamespace removes every distributed tier key under the namespace via
// an incremental scan and returns the number of keys removed. Local tier
// entries for the namespace are left to age out through their fixed TTL.
// Clearing an empty or missing namespace is a no-op.
func (m *Manager) ClearNamespace(ctx context.Context, namespace string) int {
	if m.redis == nil {
		return 0
	}

	pattern := namespace + ":*"
	removed := 0
	var cursor uint64

	for {
		opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
		keys, next, err := m.redis.Scan(opCtx, cursor, pattern, scanBatch).Result()
		if err != nil {
			cancel()
			CacheErrors.WithLabelValues("clear").Inc()
			m.logger.Warn().
				Err(err).
				Str("namespace", namespace).
				Msg("Namespace scan failed")
			break
		}

		if len(keys) > 0 {
			deleted, err := m.redis.Del(opCtx, keys...).Result()
			if err != nil {
				cancel()
				CacheErrors.WithLabelValues("clear").Inc()
				m.logger.Warn().
					Err(err).
					Str("namespace", namespace).
					Msg("Namespace delete failed")
				break
			}
			removed += int(deleted)
		}
		cancel()

		cursor = next
		if cursor == 0 {
			break
		}
	}

	m.logger.Info().
		Str("namespace", namespace).
		Int("removed", removed).
		Msg("Namespace cleared on distributed tier")
	return removed
}

// Len returns the number of live entries in the local tier.
func (m *Manager) Len() int {
	return m.local.len()
}

// Close releases the distributed tier connection. The local tier needs no
// teardown.
func (m *Manager) Close() error {
	if m.redis == nil {
		return nil
	}
	return m.redis.Close()
}
