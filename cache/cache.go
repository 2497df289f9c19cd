// Package cache keeps rendered label PDFs in Redis, keyed by template digest
// and asset id. Entries are derived data; a failing cache never fails a render.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/config"
)

const keyPrefix = "assettag:pdf:"

// Cache is a best-effort store of rendered bytes.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

// New wraps an existing client.
func New(client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, log: log.Named("cache")}
}

// Open connects using cfg and pings the server.
func Open(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client, cfg.TTL, log), nil
}

// Key returns the Redis key of a rendered label.
func Key(digest, id string) string {
	return keyPrefix + digest + ":" + id
}

// Get returns the cached bytes and whether they were found.
func (c *Cache) Get(ctx context.Context, digest, id string) ([]byte, bool) {
	data, err := c.client.Get(ctx, Key(digest, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache get failed", zap.String("asset_id", id), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Set stores data with the configured TTL (zero keeps it forever).
func (c *Cache) Set(ctx context.Context, digest, id string, data []byte) {
	if err := c.client.Set(ctx, Key(digest, id), data, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("asset_id", id), zap.Error(err))
	}
}

// Close releases the connection.
func (c *Cache) Close() error { return c.client.Close() }
