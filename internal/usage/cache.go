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
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StatsCache serves usage statistics from memory. It is created per
// process and injected where statistics are read.
type StatsCache struct {
	ledger Ledger
	lru    *expirable.LRU[string, *Stats]
}

func NewStatsCache(ledger Ledger, size int, ttl time.Duration) *StatsCache {
	if size <= 0 {
		size = 1024
	}
	return &StatsCache{
		ledger: ledger,
		lru:    expirable.NewLRU[string, *Stats](size, nil, ttl),
	}
}

// Get returns the cached statistics of subject, reading through to
// the ledger on a miss.
func (c *StatsCache) Get(ctx context.Context, subject string) (*Stats, error) {
	if s, ok := c.lru.Get(subject); ok {
		return s, nil
	}

	s, err := c.ledger.Stats(ctx, subject)
	if err != nil {
		return nil, err
	}
	c.lru.Add(subject, s)
	return s, nil
}

// Invalidate drops the given subjects, or every subject when none is given.
func (c *StatsCache) Invalidate(subjects ...string) {
	if len(subjects) == 0 {
		c.lru.Purge()
		return
	}
	for _, s := range subjects {
		c.lru.Remove(s)
	}
}

// Refresh invalidates and reloads the statistics of subject.
func (c *StatsCache) Refresh(ctx context.Context, subject string) (*Stats, error) {
	c.Invalidate(subject)
	return c.Get(ctx, subject)
}
