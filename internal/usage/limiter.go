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
	"fmt"
	"sync"

	"github.com/alan-mat/cognote/internal/api"
	"golang.org/x/time/rate"
)

// LimiterLedger throttles calls per provider with a token bucket
// before consulting the next ledger. It refuses instead of waiting.
type LimiterLedger struct {
	next Ledger

	mu       sync.Mutex
	limiters map[api.Provider]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLimiterLedger allows requestsPerMinute calls per provider with
// the given burst. A nil next ledger is treated as [NopLedger].
func NewLimiterLedger(next Ledger, requestsPerMinute float64, burst int) *LimiterLedger {
	if next == nil {
		next = NopLedger{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterLedger{
		next:     next,
		limiters: make(map[api.Provider]*rate.Limiter),
		limit:    rate.Limit(requestsPerMinute / 60),
		burst:    burst,
	}
}

func (l *LimiterLedger) Reserve(ctx context.Context, u Usage) error {
	if !l.limiter(u.Provider).Allow() {
		return fmt.Errorf("%w: %s request rate exceeded", api.ErrQuotaExceeded, u.Provider)
	}
	return l.next.Reserve(ctx, u)
}

func (l *LimiterLedger) Stats(ctx context.Context, subject string) (*Stats, error) {
	return l.next.Stats(ctx, subject)
}

func (l *LimiterLedger) limiter(p api.Provider) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[p]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[p] = lim
	}
	return lim
}
