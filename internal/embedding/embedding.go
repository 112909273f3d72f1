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

// Package embedding runs note embedding batches. Items are split into
// fixed-size chunks; chunks run one after another and the items of a
// chunk run concurrently.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/guard"
	"github.com/alan-mat/cognote/internal/provider"
	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 5

// Upserter receives the computed embeddings.
type Upserter interface {
	Upsert(ctx context.Context, embeddings ...api.Embedding) error
}

// ProgressFunc receives the cumulative share of processed items
// in percent after every chunk.
type ProgressFunc func(percent float64)

type Failure struct {
	ID  string
	Err error
}

type Report struct {
	Succeeded []string
	Failed    []Failure
}

func (r *Report) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Item is a content unit to embed together with its project scope.
type Item struct {
	api.ContentUnit
	Scope string
}

type Processor struct {
	embedder  provider.Embedder
	store     Upserter
	batchSize int
	maxChars  int
}

type Option func(*Processor)

func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithMaxChars(n int) Option {
	return func(p *Processor) {
		p.maxChars = n
	}
}

func NewProcessor(embedder provider.Embedder, store Upserter, opts ...Option) *Processor {
	p := &Processor{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		maxChars:  guard.EmbeddingMaxChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run embeds every item and never returns an error: failures are
// collected per item. When ctx is cancelled the remaining items are
// reported as failed.
func (p *Processor) Run(ctx context.Context, items []Item, onProgress ProgressFunc) *Report {
	report := &Report{
		Succeeded: make([]string, 0, len(items)),
		Failed:    make([]Failure, 0),
	}
	progress := func(v float64) {
		if onProgress != nil {
			onProgress(v)
		}
	}

	total := len(items)
	if total == 0 {
		progress(100)
		return report
	}

	processed := 0

	for start := 0; start < total; start += p.batchSize {
		end := min(start+p.batchSize, total)
		chunk := items[start:end]

		if err := ctx.Err(); err != nil {
			for _, item := range items[start:] {
				report.Failed = append(report.Failed, Failure{ID: item.ID, Err: err})
			}
			slog.Warn("embedding batch cancelled", "remaining", total-start, "error", err)
			progress(100)
			return report
		}

		results := make([]error, len(chunk))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(len(chunk))
		for i, item := range chunk {
			g.Go(func() error {
				results[i] = p.embedItem(gctx, item)
				return nil
			})
		}
		g.Wait()

		for i, item := range chunk {
			if results[i] != nil {
				report.Failed = append(report.Failed, Failure{ID: item.ID, Err: results[i]})
				slog.Debug("failed to embed item", "id", item.ID, "error", results[i])
				continue
			}
			report.Succeeded = append(report.Succeeded, item.ID)
		}
		processed += len(chunk)

		progress(float64(processed) / float64(total) * 100)
	}

	slog.Info("embedding batch finished", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report
}

func (p *Processor) embedItem(ctx context.Context, item Item) error {
	if item.IsBlank() {
		return api.ErrEmptyInput
	}

	text := Compose(item.Title, item.Text())
	guarded := guard.Apply(text, p.maxChars)

	vec, err := provider.EmbedText(ctx, p.embedder, item.Title, guarded.Text)
	if err != nil {
		return fmt.Errorf("failed to embed: %w", err)
	}

	err = p.store.Upsert(ctx, api.Embedding{
		ContentID: item.ID,
		Scope:     item.Scope,
		Title:     item.Title,
		Content:   guarded.Text,
		Vector:    vec,
	})
	if err != nil {
		return api.PersistenceError{Op: "upsert embedding", Err: err}
	}
	return nil
}

// Compose builds the text embedded for a note.
func Compose(title, body string) string {
	return title + "\n\n" + body
}
