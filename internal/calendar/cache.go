package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"meeting-scheduler/internal/model"
)

type BusySource interface {
	IsConnected(ctx context.Context, organizerID int64) bool
	FetchBusy(ctx context.Context, organizerID int64, from, to string) ([]model.BusyInterval, error)
}

// CachedBusy keeps busy intervals in Redis for a short TTL so repeated slot
// queries do not spend Google quota. Redis failures fall through to next.
type CachedBusy struct {
	next   BusySource
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedBusy(next BusySource, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedBusy {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedBusy{next: next, rdb: rdb, ttl: ttl, prefix: "busy", logger: logger}
}

func (c *CachedBusy) IsConnected(ctx context.Context, organizerID int64) bool {
	return c.next.IsConnected(ctx, organizerID)
}

func (c *CachedBusy) key(organizerID int64, from, to string) string {
	return fmt.Sprintf("%s:%d:%s:%s", c.prefix, organizerID, from, to)
}

func (c *CachedBusy) FetchBusy(ctx context.Context, organizerID int64, from, to string) ([]model.BusyInterval, error) {
	key := c.key(organizerID, from, to)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var busy []model.BusyInterval
		if err := json.Unmarshal(raw, &busy); err == nil {
			return busy, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("busy cache read failed", "key", key, "err", err)
	}

	busy, err := c.next.FetchBusy(ctx, organizerID, from, to)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(busy); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("busy cache write failed", "key", key, "err", err)
		}
	}
	return busy, nil
}

// Forget drops every cached range of the organizer, e.g. after a new event
// was written to their calendar.
func (c *CachedBusy) Forget(ctx context.Context, organizerID int64) {
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("%s:%d:*", c.prefix, organizerID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("busy cache scan failed", "organizer_id", organizerID, "err", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("busy cache delete failed", "organizer_id", organizerID, "err", err)
		}
	}
}
