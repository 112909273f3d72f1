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

package usage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/usage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func TestSubjectFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, usage.AnonymousSubject, usage.SubjectFrom(ctx))

	ctx = usage.WithSubject(ctx, "user-1")
	assert.Equal(t, "user-1", usage.SubjectFrom(ctx))
}

func TestRedisLedgerCountsAndRefuses(t *testing.T) {
	rdb, _ := setupRedis(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	ledger := usage.NewRedisLedger(rdb, usage.WithLimit(2), usage.WithClock(func() time.Time { return fixed }))

	u := usage.Usage{Subject: "user-1", Provider: api.ProviderOpenAI, Task: api.TaskSummary}
	require.NoError(t, ledger.Reserve(ctx, u))
	u.Task = api.TaskTags
	require.NoError(t, ledger.Reserve(ctx, u))

	err := ledger.Reserve(ctx, u)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrQuotaExceeded)

	stats, err := ledger.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Used)
	assert.Equal(t, int64(0), stats.Remaining())
	assert.Equal(t, map[string]int64{"openai": 2}, stats.ByProvider)
	assert.Equal(t, map[string]int64{"summary": 1, "tags": 1}, stats.ByTask)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), stats.WindowStart)
	assert.Equal(t, time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), stats.WindowEnd)

	other, err := ledger.Stats(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Used)
}

func TestRedisLedgerWindowRollsOver(t *testing.T) {
	rdb, _ := setupRedis(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 59, 0, 0, time.UTC)
	ledger := usage.NewRedisLedger(rdb, usage.WithLimit(1), usage.WithClock(func() time.Time { return now }))

	u := usage.Usage{Subject: "user-1", Provider: api.ProviderAnthropic, Task: api.TaskTitle}
	require.NoError(t, ledger.Reserve(ctx, u))
	assert.ErrorIs(t, ledger.Reserve(ctx, u), api.ErrQuotaExceeded)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, ledger.Reserve(ctx, u))
}

func TestRedisLedgerKeysExpire(t *testing.T) {
	rdb, mr := setupRedis(t)
	ctx := context.Background()
	ledger := usage.NewRedisLedger(rdb)

	require.NoError(t, ledger.Reserve(ctx, usage.Usage{Subject: "s", Provider: api.ProviderOpenAI, Task: api.TaskChat}))
	keys := mr.Keys()
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.Equal(t, 2*usage.DefaultWindow, mr.TTL(k))
	}
}

func TestLimiterLedgerRefusesWithoutWaiting(t *testing.T) {
	ctx := context.Background()
	ledger := usage.NewLimiterLedger(nil, 1, 2)

	u := usage.Usage{Subject: "s", Provider: api.ProviderOpenAI, Task: api.TaskChat}
	require.NoError(t, ledger.Reserve(ctx, u))
	require.NoError(t, ledger.Reserve(ctx, u))

	start := time.Now()
	err := ledger.Reserve(ctx, u)
	assert.ErrorIs(t, err, api.ErrQuotaExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// buckets are per provider
	u.Provider = api.ProviderAnthropic
	assert.NoError(t, ledger.Reserve(ctx, u))
}

type countingLedger struct {
	usage.NopLedger
	statsCalls int
}

func (l *countingLedger) Stats(ctx context.Context, subject string) (*usage.Stats, error) {
	l.statsCalls++
	s, _ := l.NopLedger.Stats(ctx, subject)
	s.Used = int64(l.statsCalls)
	return s, nil
}

func TestStatsCache(t *testing.T) {
	ctx := context.Background()
	ledger := &countingLedger{}
	cache := usage.NewStatsCache(ledger, 10, time.Minute)

	s, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Used)

	s, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Used, "second read served from cache")

	s, err = cache.Refresh(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Used)

	cache.Invalidate()
	s, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Used)
}
