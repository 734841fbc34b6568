package worker

import (
	"context"
	"encoding/json"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
)

const queueSize = 1000

// CacheInvalidator drops cached item projections when a booking event changes
// the last/next read model of an item. Event handlers only enqueue; deletes
// happen on the worker goroutine with retry.
type CacheInvalidator struct {
	cache  domain.Cache
	queue  chan []string
	policy RetryPolicy
	logger *zerolog.Logger
}

func NewCacheInvalidator(cache domain.Cache, policy RetryPolicy, logger *zerolog.Logger) *CacheInvalidator {
	return &CacheInvalidator{
		cache:  cache,
		queue:  make(chan []string, queueSize),
		policy: policy,
		logger: logger,
	}
}

// SubscribeTo registers the invalidator for every booking lifecycle event.
func (w *CacheInvalidator) SubscribeTo(bus *events.EventBus) {
	for _, eventType := range []string{events.EventBookingCreated, events.EventBookingApproved, events.EventBookingRejected} {
		bus.Subscribe(eventType, w.handleEvent)
	}
}

func (w *CacheInvalidator) handleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		w.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode booking event")
		return err
	}

	keys := []string{
		repository.ItemKey(payload.ItemID),
		repository.OwnerItemsKey(payload.ItemOwnerID),
	}

	select {
	case w.queue <- keys:
	default:
		w.logger.Warn().Strs("keys", keys).Msg("invalidation queue full, dropping task")
	}
	return nil
}

// Enqueue schedules explicit keys for deletion, for mutations that do not go
// through the event bus (item and comment writes).
func (w *CacheInvalidator) Enqueue(keys ...string) {
	if len(keys) == 0 {
		return
	}
	select {
	case w.queue <- keys:
	default:
		w.logger.Warn().Strs("keys", keys).Msg("invalidation queue full, dropping task")
	}
}

// Run processes the queue until the context is canceled.
func (w *CacheInvalidator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case keys := <-w.queue:
			w.deleteWithRetry(ctx, keys)
		}
	}
}

func (w *CacheInvalidator) deleteWithRetry(ctx context.Context, keys []string) {
	attempts := w.policy.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := w.cache.Delete(ctx, keys...)
		if err == nil {
			return
		}
		w.logger.Error().Err(err).Strs("keys", keys).Int("attempt", attempt).Msg("cache invalidation failed")

		if attempt == attempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.policy.NextDelay(attempt)):
		}
	}
}
