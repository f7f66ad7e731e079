// Package cache provides Redis-backed caching for the scan universe with
// graceful degradation: when Redis is unavailable the universe is fetched
// directly from the exchange on every scan.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	universeKey = "scanner:universe:%d"

	// DefaultUniverseTTL matches the refresh rhythm of the 24h volume
	// ranking; the top of the list barely moves inside an hour.
	DefaultUniverseTTL = time.Hour
)

// Config holds Redis connection settings.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// SymbolLister is the upstream source of ranked symbols.
type SymbolLister interface {
	TopSymbolsByVolume(limit int) ([]string, error)
}

// UniverseCache caches the ranked symbol universe in Redis.
type UniverseCache struct {
	client *redis.Client
	source SymbolLister
	ttl    time.Duration
	logger zerolog.Logger
}

// NewUniverseCache creates the cache. When cfg.Enabled is false the client is
// nil and every lookup goes straight to the source.
func NewUniverseCache(cfg Config, source SymbolLister, logger zerolog.Logger) *UniverseCache {
	uc := &UniverseCache{
		source: source,
		ttl:    DefaultUniverseTTL,
		logger: logger.With().Str("component", "UniverseCache").Logger(),
	}
	if cfg.Enabled {
		uc.client = redis.NewClient(&redis.Options{
			Addr:         cfg.Address,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
	}
	return uc
}

// Symbols returns up to limit symbols, served from Redis when a fresh entry
// exists. Redis errors degrade to a direct exchange call.
func (uc *UniverseCache) Symbols(ctx context.Context, limit int) ([]string, error) {
	key := fmt.Sprintf(universeKey, limit)

	if uc.client != nil {
		data, err := uc.client.Get(ctx, key).Bytes()
		if err == nil {
			var symbols []string
			if jsonErr := json.Unmarshal(data, &symbols); jsonErr == nil && len(symbols) > 0 {
				return symbols, nil
			}
		} else if err != redis.Nil {
			uc.logger.Warn().Err(err).Msg("redis read failed, falling back to exchange")
		}
	}

	symbols, err := uc.source.TopSymbolsByVolume(limit)
	if err != nil {
		return nil, fmt.Errorf("universe fetch failed: %w", err)
	}

	if uc.client != nil {
		if data, err := json.Marshal(symbols); err == nil {
			if err := uc.client.Set(ctx, key, data, uc.ttl).Err(); err != nil {
				uc.logger.Warn().Err(err).Msg("redis write failed")
			}
		}
	}
	return symbols, nil
}

// Close releases the Redis connection.
func (uc *UniverseCache) Close() error {
	if uc.client != nil {
		return uc.client.Close()
	}
	return nil
}
