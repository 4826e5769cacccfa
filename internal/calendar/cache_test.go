package calendar

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-scheduler/internal/model"
)

// mapRedis implements the commands CachedBusy uses on a map.
type mapRedis struct {
	redis.Cmdable
	data map[string]string
	down bool
}

func (m *mapRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	v, ok := m.data[key]
	switch {
	case m.down:
		cmd.SetErr(errors.New("connection refused"))
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(v)
	}
	return cmd
}

func (m *mapRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	if m.down {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	m.data[key] = string(value.([]byte))
	cmd.SetVal("OK")
	return cmd
}

type countingSource struct {
	calls int
	busy  []model.BusyInterval
	err   error
}

func (c *countingSource) IsConnected(context.Context, int64) bool { return true }

func (c *countingSource) FetchBusy(context.Context, int64, string, string) ([]model.BusyInterval, error) {
	c.calls++
	return c.busy, c.err
}

func TestCachedBusy(t *testing.T) {
	ctx := context.Background()
	interval := model.BusyInterval{
		Start: time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC),
	}

	t.Run("second fetch is served from redis", func(t *testing.T) {
		src := &countingSource{busy: []model.BusyInterval{interval}}
		c := NewCachedBusy(src, &mapRedis{data: map[string]string{}}, time.Minute, slog.New(slog.DiscardHandler))

		for i := 0; i < 2; i++ {
			busy, err := c.FetchBusy(ctx, 1, "2026-01-01", "2026-01-31")
			require.NoError(t, err)
			require.Len(t, busy, 1)
			assert.True(t, busy[0].Start.Equal(interval.Start))
		}
		assert.Equal(t, 1, src.calls)

		_, err := c.FetchBusy(ctx, 1, "2026-02-01", "2026-02-28")
		require.NoError(t, err)
		assert.Equal(t, 2, src.calls, "different range")
	})

	t.Run("redis outage falls through", func(t *testing.T) {
		src := &countingSource{busy: []model.BusyInterval{interval}}
		c := NewCachedBusy(src, &mapRedis{data: map[string]string{}, down: true}, time.Minute, slog.New(slog.DiscardHandler))

		busy, err := c.FetchBusy(ctx, 1, "2026-01-01", "2026-01-31")
		require.NoError(t, err)
		assert.Len(t, busy, 1)
	})

	t.Run("source errors are not cached", func(t *testing.T) {
		src := &countingSource{err: ErrNotConnected}
		r := &mapRedis{data: map[string]string{}}
		c := NewCachedBusy(src, r, time.Minute, slog.New(slog.DiscardHandler))

		_, err := c.FetchBusy(ctx, 1, "2026-01-01", "2026-01-31")
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.Empty(t, r.data)
	})
}
