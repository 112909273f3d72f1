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

package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

type imageKey struct {
	url     string
	project string
}

// MemoryRepository keeps artifacts in process. It backs the CLI and
// tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	now       func() time.Time
	summaries map[string]NoteSummary
	images    map[imageKey]ImageSummary
	metadata  map[string]NoteMetadata
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:       time.Now,
		summaries: make(map[string]NoteSummary),
		images:    make(map[imageKey]ImageSummary),
		metadata:  make(map[string]NoteMetadata),
	}
}

func (r *MemoryRepository) UpsertNoteSummary(_ context.Context, s NoteSummary) error {
	if s.NoteID == "" {
		return persistenceError("upsert note summary", errors.New("missing note id"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s.Summary = cloneSummary(s.Summary)
	s.UpdatedAt = r.now()
	r.summaries[s.NoteID] = s
	return nil
}

func (r *MemoryRepository) NoteSummary(_ context.Context, noteID string) (*NoteSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.summaries[noteID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Summary = cloneSummary(s.Summary)
	return &s, nil
}

func (r *MemoryRepository) UpsertImageSummary(_ context.Context, s ImageSummary) error {
	if s.ImageURL == "" {
		return persistenceError("upsert image summary", errors.New("missing image url"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = r.now()
	r.images[imageKey{s.ImageURL, s.ProjectID}] = s
	return nil
}

func (r *MemoryRepository) ImageSummary(_ context.Context, imageURL, projectID string) (*ImageSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.images[imageKey{imageURL, projectID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) UpsertNoteMetadata(_ context.Context, m NoteMetadata) error {
	if m.NoteID == "" {
		return persistenceError("upsert note metadata", errors.New("missing note id"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.metadata[m.NoteID]; ok {
		if m.Title == nil {
			m.Title = prev.Title
		}
		if len(m.Tags) == 0 {
			m.Tags = prev.Tags
		}
	}
	if m.Title != nil {
		title := *m.Title
		m.Title = &title
	}
	m.Tags = slices.Clone(m.Tags)
	m.UpdatedAt = r.now()
	r.metadata[m.NoteID] = m
	return nil
}

func (r *MemoryRepository) NoteMetadata(_ context.Context, noteID string) (*NoteMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metadata[noteID]
	if !ok {
		return nil, ErrNotFound
	}
	m.Tags = slices.Clone(m.Tags)
	return &m, nil
}

// Counts returns the number of stored summaries, image summaries
// and metadata rows.
func (r *MemoryRepository) Counts() (int, int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.summaries), len(r.images), len(r.metadata)
}
