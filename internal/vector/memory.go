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
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/alan-mat/cognote/internal/api"
)

// MemoryStore is a brute force in-process store. Ties between equal
// scores keep insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	dims    uint
	order   []string
	entries map[string]api.Embedding
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]api.Embedding),
	}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, dims uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dims == 0 {
		s.dims = dims
	}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, embeddings ...api.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range embeddings {
		if e.IsEmpty() {
			return fmt.Errorf("embedding for '%s' has no vector", e.ContentID)
		}
		if s.dims > 0 && uint(len(e.Vector)) != s.dims {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dims, len(e.Vector))
		}

		if _, ok := s.entries[e.ContentID]; !ok {
			s.order = append(s.order, e.ContentID)
		}
		e.Vector = slices.Clone(e.Vector)
		s.entries[e.ContentID] = e
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, contentIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range contentIDs {
		delete(s.entries, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, ok := s.entries[id]
		return !ok
	})
	return nil
}

// Get returns the stored embedding of a content id.
func (s *MemoryStore) Get(contentID string) (api.Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[contentID]
	return e, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Query(_ context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := params.vector
	if params.sourceID != "" {
		source, ok := s.entries[params.sourceID]
		if !ok {
			return []*ScoredPoint{}, nil
		}
		query = source.Vector
	}

	points := make([]*ScoredPoint, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		payload := map[string]string{
			PayloadContentID: e.ContentID,
			PayloadScope:     e.Scope,
			PayloadTitle:     e.Title,
			PayloadContent:   e.Content,
		}
		if params.scope != "" && e.Scope != params.scope {
			continue
		}
		if !matchesFilters(payload, params.filters) {
			continue
		}
		if !params.withPayload {
			payload = nil
		}

		points = append(points, &ScoredPoint{
			ContentID: e.ContentID,
			Score:     CosineSimilarity(query, e.Vector),
			Payload:   payload,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Score > points[j].Score
	})

	if params.limit > 0 && uint(len(points)) > params.limit {
		points = points[:params.limit]
	}
	return points, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Scores are rounded to this granularity; parallel vectors tie exactly.
const scorePrecision = 1e9

// CosineSimilarity returns 0 for vectors of different length or
// zero magnitude. The result lies in [-1, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	sim := math.Round(dot/(math.Sqrt(normA)*math.Sqrt(normB))*scorePrecision) / scorePrecision
	return math.Max(-1, math.Min(1, sim))
}
