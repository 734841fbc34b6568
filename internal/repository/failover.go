package repository

import (
	"context"
	"sync/atomic"
	"time"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the failover waits before probing the primary
// again after it tripped.
const recoveryInterval = time.Minute

// FailoverCache serves from the primary cache until it errors, then trips to
// the fallback and periodically probes the primary for recovery.
type FailoverCache struct {
	primary   domain.Cache
	fallback  domain.Cache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverCache(primary, fallback domain.Cache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverCache) Get(ctx context.Context, key string) ([]byte, error) {
	if !c.isDown.Load() {
		value, err := c.primary.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		c.trip(err)
	}

	if c.shouldProbe() {
		value, err := c.primary.Get(ctx, key)
		if err == nil {
			c.isDown.Store(false)
			return value, nil
		}
		c.lastCheck.Store(time.Now().UnixNano())
	}

	return c.fallback.Get(ctx, key)
}

func (c *FailoverCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.isDown.Load() {
		err := c.primary.Set(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		c.trip(err)
	}

	return c.fallback.Set(ctx, key, value, ttl)
}

func (c *FailoverCache) Delete(ctx context.Context, keys ...string) error {
	// Always clear the fallback too, so a stale projection cannot survive a
	// failover window.
	fallbackErr := c.fallback.Delete(ctx, keys...)

	if !c.isDown.Load() {
		err := c.primary.Delete(ctx, keys...)
		if err == nil {
			return fallbackErr
		}
		c.trip(err)
	}

	return fallbackErr
}

func (c *FailoverCache) trip(err error) {
	c.logger.Error().Err(err).Msg("primary cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverCache) shouldProbe() bool {
	return c.isDown.Load() && time.Since(time.Unix(0, c.lastCheck.Load())) > recoveryInterval
}
