// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultWindow = time.Hour
	keyPrefix     = "cognote:usage"
)

// RedisLedger counts calls per subject in fixed windows. Counters
// expire shortly after their window ends.
type RedisLedger struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

type RedisLedgerOption func(*RedisLedger)

// WithLimit sets the number of calls allowed per window. Zero means unlimited.
func WithLimit(limit int64) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.limit = limit
	}
}

func WithWindow(window time.Duration) RedisLedgerOption {
	return func(l *RedisLedger) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithClock(now func() time.Time) RedisLedgerOption {
	return func(l *RedisLedger) {
		l.now = now
	}
}

func NewRedisLedger(rdb *redis.Client, opts ...RedisLedgerOption) *RedisLedger {
	l := &RedisLedger{
		rdb:    rdb,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLedger) Reserve(ctx context.Context, u Usage) error {
	start := l.windowStart()
	countKey, breakdownKey := l.keys(u.Subject, start)
	field := breakdownField(u.Provider.String(), string(u.Task))
	ttl := l.window * 2

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, countKey)
		pipe.Expire(ctx, countKey, ttl)
		pipe.HIncrBy(ctx, breakdownKey, field, 1)
		pipe.Expire(ctx, breakdownKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reserve usage for '%s': %w", u.Subject, err)
	}

	if l.limit > 0 && incr.Val() > l.limit {
		// refused calls are not counted
		_, rerr := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Decr(ctx, countKey)
			pipe.HIncrBy(ctx, breakdownKey, field, -1)
			return nil
		})
		if rerr != nil {
			slog.Warn("failed to release refused usage", "subject", u.Subject, "err", rerr)
		}
		return fmt.Errorf("%w: subject '%s' exhausted %d calls per %s", api.ErrQuotaExceeded, u.Subject, l.limit, l.window)
	}

	slog.Debug("reserved provider call", "subject", u.Subject, "provider", u.Provider, "task", u.Task, "used", incr.Val())
	return nil
}

func (l *RedisLedger) Stats(ctx context.Context, subject string) (*Stats, error) {
	start := l.windowStart()
	countKey, breakdownKey := l.keys(subject, start)

	var (
		count     *redis.StringCmd
		breakdown *redis.MapStringStringCmd
	)
	_, err := l.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Get(ctx, countKey)
		breakdown = pipe.HGetAll(ctx, breakdownKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read usage for '%s': %w", subject, err)
	}

	stats := &Stats{
		Subject:     subject,
		WindowStart: start,
		WindowEnd:   start.Add(l.window),
		Limit:       l.limit,
		ByProvider:  map[string]int64{},
		ByTask:      map[string]int64{},
	}

	if n, err := count.Int64(); err == nil {
		stats.Used = n
	}
	for field, raw := range breakdown.Val() {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		provider, task, _ := strings.Cut(field, ":")
		stats.ByProvider[provider] += n
		stats.ByTask[task] += n
	}

	return stats, nil
}

func (l *RedisLedger) windowStart() time.Time {
	return l.now().UTC().Truncate(l.window)
}

func (l *RedisLedger) keys(subject string, start time.Time) (string, string) {
	base := fmt.Sprintf("%s:%s:%d", keyPrefix, subject, start.Unix())
	return base + ":count", base + ":breakdown"
}

func breakdownField(provider, task string) string {
	return provider + ":" + task
}
