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

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/alan-mat/cognote/internal/api"
)

const (
	DefaultThreshold = 0.5
	DefaultTopK      = 10
)

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
}

// Engine answers similarity queries over persisted embeddings.
// It never writes to the store.
type Engine struct {
	store    Store
	embedder QueryEmbedder
}

func NewEngine(store Store, embedder QueryEmbedder) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
	}
}

// Search embeds the query text and returns the topK nearest
// embeddings within scope, best first.
func (e *Engine) Search(ctx context.Context, query, scope string, topK uint) ([]api.SimilarityResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, api.ErrEmptyInput
	}
	if topK == 0 {
		topK = DefaultTopK
	}

	vec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := e.store.Query(ctx, NewQueryParams(vec,
		WithScope(scope),
		WithLimit(topK),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	return toResults(points, ""), nil
}

// FindSimilar returns the topK neighbours of stored content. The
// source is never part of the result. Content without an embedding
// has no neighbours.
func (e *Engine) FindSimilar(ctx context.Context, contentID, scope string, topK uint) ([]api.SimilarityResult, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, api.ErrEmptyInput
	}
	if topK == 0 {
		topK = DefaultTopK
	}

	points, err := e.store.Query(ctx, NewSourceQueryParams(contentID,
		WithScope(scope),
		WithLimit(topK+1),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	results := toResults(points, contentID)
	if uint(len(results)) > topK {
		results = results[:topK]
	}

	slog.Debug("found similar content", "id", contentID, "scope", scope, "results", len(results))
	return results, nil
}

func toResults(points []*ScoredPoint, exclude string) []api.SimilarityResult {
	results := make([]api.SimilarityResult, 0, len(points))
	for _, p := range points {
		id := p.ContentID
		if id == "" {
			id = p.Payload[PayloadContentID]
		}
		if exclude != "" && id == exclude {
			continue
		}

		results = append(results, api.SimilarityResult{
			ContentID: id,
			Title:     p.Payload[PayloadTitle],
			Content:   p.Payload[PayloadContent],
			Score:     Clamp(p.Score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Clamp bounds a score or threshold to [0, 1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// FilterByThreshold keeps the results scoring at least threshold,
// preserving their order. The input is not modified.
func FilterByThreshold(results []api.SimilarityResult, threshold float64) []api.SimilarityResult {
	threshold = Clamp(threshold)

	filtered := make([]api.SimilarityResult, 0, len(results))
	for _, r := range results {
		if r.Accepted(threshold) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FetchFunc loads the superset of results a [ResultSet] filters.
type FetchFunc func(ctx context.Context) ([]api.SimilarityResult, error)

// ResultSet keeps the last fetched results so the threshold can change
// without querying the store again.
type ResultSet struct {
	mu        sync.RWMutex
	fetch     FetchFunc
	results   []api.SimilarityResult
	threshold float64
}

func NewResultSet(fetch FetchFunc, threshold float64) *ResultSet {
	return &ResultSet{
		fetch:     fetch,
		threshold: Clamp(threshold),
	}
}

// SearchSet returns a result set over Search.
func (e *Engine) SearchSet(query, scope string, topK uint, threshold float64) *ResultSet {
	return NewResultSet(func(ctx context.Context) ([]api.SimilarityResult, error) {
		return e.Search(ctx, query, scope, topK)
	}, threshold)
}

// SimilarSet returns a result set over FindSimilar.
func (e *Engine) SimilarSet(contentID, scope string, topK uint, threshold float64) *ResultSet {
	return NewResultSet(func(ctx context.Context) ([]api.SimilarityResult, error) {
		return e.FindSimilar(ctx, contentID, scope, topK)
	}, threshold)
}

// Refresh fetches the results again. On error the previous results
// are kept.
func (rs *ResultSet) Refresh(ctx context.Context) error {
	results, err := rs.fetch(ctx)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	rs.results = results
	rs.mu.Unlock()
	return nil
}

func (rs *ResultSet) SetThreshold(threshold float64) {
	rs.mu.Lock()
	rs.threshold = Clamp(threshold)
	rs.mu.Unlock()
}

func (rs *ResultSet) Threshold() float64 {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.threshold
}

// All returns every fetched result regardless of the threshold.
func (rs *ResultSet) All() []api.SimilarityResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return slices.Clone(rs.results)
}

func (rs *ResultSet) Accepted() []api.SimilarityResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return FilterByThreshold(rs.results, rs.threshold)
}
