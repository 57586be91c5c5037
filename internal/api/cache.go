package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AvailabilityCache keeps rendered available-days responses in redis so the
// month calendar does not hit the holiday file on every request. Misses and
// redis errors both fall through to a fresh computation.
type AvailabilityCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

const availabilityKeyPrefix = "techgym:available-days:"

func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl, logger: logger}
}

func availabilityKey(year, month int) string {
	return fmt.Sprintf("%s%04d-%02d", availabilityKeyPrefix, year, month)
}

// Get returns the cached payload for a month, or ok=false on miss or error.
func (c *AvailabilityCache) Get(ctx context.Context, year, month int) ([]byte, bool) {
	payload, err := c.rdb.Get(ctx, availabilityKey(year, month)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("availability cache read failed")
		return nil, false
	}
	return payload, true
}

// Set stores a rendered payload. Failures are logged and ignored.
func (c *AvailabilityCache) Set(ctx context.Context, year, month int, payload []byte) {
	if err := c.rdb.Set(ctx, availabilityKey(year, month), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache write failed")
	}
}

// Invalidate drops every cached month. Called when the holiday calendar
// changes, since any month may be affected.
func (c *AvailabilityCache) Invalidate(ctx context.Context) {
	keys, err := c.rdb.Keys(ctx, availabilityKeyPrefix+"*").Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("availability cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache invalidation failed")
	}
}
