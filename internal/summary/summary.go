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

// Package summary produces structured summaries of content units.
package summary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/guard"
	"github.com/alan-mat/cognote/internal/prompt"
)

// Caller sends a completion request to a provider.
// It is implemented by [provider.Router].
type Caller interface {
	Call(ctx context.Context, p api.Provider, req api.CompletionRequest) (*api.CompletionResponse, error)
}

type Pipeline struct {
	caller   Caller
	prompts  *prompt.Catalog
	maxChars int

	// providers asked for constrained JSON output
	jsonProviders map[api.Provider]bool
}

type Option func(*Pipeline)

// WithMaxChars sets the input ceiling in characters.
func WithMaxChars(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithJSONProviders replaces the set of providers asked for JSON output.
func WithJSONProviders(providers ...api.Provider) Option {
	return func(p *Pipeline) {
		p.jsonProviders = make(map[api.Provider]bool, len(providers))
		for _, pr := range providers {
			p.jsonProviders[pr] = true
		}
	}
}

func New(caller Caller, prompts *prompt.Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		caller:        caller,
		prompts:       prompts,
		maxChars:      guard.SummaryMaxChars,
		jsonProviders: map[api.Provider]bool{api.ProviderOpenAI: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summarize summarizes the unit with the given provider. It has no
// side effects; persisting the result is up to the caller.
func (p *Pipeline) Summarize(ctx context.Context, unit api.ContentUnit, provider api.Provider) (*api.StructuredSummary, error) {
	if unit.IsBlank() {
		return nil, fmt.Errorf("cannot summarize '%s': %w", unit.ID, api.ErrEmptyInput)
	}

	guarded := guard.Apply(unit.Text(), p.maxChars)
	if guarded.Truncated {
		slog.Info("summary input truncated", "id", unit.ID, "from", guarded.OriginalLength, "to", p.maxChars)
	}

	systemPrompt, err := p.prompts.Get(api.TaskSummary, provider, map[string]any{
		"title": unit.Title,
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.caller.Call(ctx, provider, api.CompletionRequest{
		Task:         api.TaskSummary,
		SystemPrompt: systemPrompt,
		Temperature:  api.TaskSummary.Temperature(),
		UserContent:  guarded.Text,
		JSON:         p.jsonProviders[provider],
	})
	if err != nil {
		return nil, err
	}

	s, err := Parse(resp.Text)
	if err != nil {
		slog.Warn("failed to parse summary response", "id", unit.ID, "provider", provider, "err", err)
		return nil, err
	}

	if note := guarded.Note(); note != "" {
		s.TruncationNote = note
		if s.Description == "" {
			s.Description = note
		} else {
			s.Description += "\n\n" + note
		}
	}

	return s, nil
}
