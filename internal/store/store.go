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

// Package store persists generated artifacts: note summaries, image
// summaries and note metadata. Every write is an upsert keyed by the
// artifact identity, so repeated writes converge to the latest one.
package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/alan-mat/cognote/internal/api"
)

var ErrNotFound = errors.New("artifact not found")

// NoteSummary is keyed by NoteID. A nil Summary is a valid row that
// only marks the note as summarized.
type NoteSummary struct {
	NoteID    string
	ProjectID string
	Summary   *api.StructuredSummary
	Provider  api.Provider
	UpdatedAt time.Time
}

func (s NoteSummary) HasContent() bool {
	return s.Summary != nil
}

// ImageSummary is keyed by ImageURL and ProjectID.
type ImageSummary struct {
	ImageURL    string
	ProjectID   string
	Description string
	Provider    api.Provider
	UpdatedAt   time.Time
}

// NoteMetadata is keyed by NoteID.
type NoteMetadata struct {
	NoteID    string
	ProjectID string
	Title     *string
	Tags      []string
	UpdatedAt time.Time
}

type Repository interface {
	UpsertNoteSummary(ctx context.Context, s NoteSummary) error
	NoteSummary(ctx context.Context, noteID string) (*NoteSummary, error)

	UpsertImageSummary(ctx context.Context, s ImageSummary) error
	ImageSummary(ctx context.Context, imageURL, projectID string) (*ImageSummary, error)

	UpsertNoteMetadata(ctx context.Context, m NoteMetadata) error
	NoteMetadata(ctx context.Context, noteID string) (*NoteMetadata, error)
}

func persistenceError(op string, err error) error {
	return api.PersistenceError{Op: op, Err: err}
}

func cloneSummary(s *api.StructuredSummary) *api.StructuredSummary {
	if s == nil {
		return nil
	}
	c := *s
	c.KeyLearnings = slices.Clone(s.KeyLearnings)
	c.Blockers = slices.Clone(s.Blockers)
	c.NextSteps = slices.Clone(s.NextSteps)
	return &c
}
