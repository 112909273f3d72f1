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

// Package metadata generates titles and tags for content units.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/guard"
	"github.com/alan-mat/cognote/internal/prompt"
)

const DefaultMaxTags = 5

type Caller interface {
	Call(ctx context.Context, p api.Provider, req api.CompletionRequest) (*api.CompletionResponse, error)
}

type Generator struct {
	caller   Caller
	prompts  *prompt.Catalog
	maxChars int
	maxTags  int
}

type Option func(*Generator)

func WithMaxChars(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxChars = n
		}
	}
}

func WithMaxTags(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTags = n
		}
	}
}

func New(caller Caller, prompts *prompt.Catalog, opts ...Option) *Generator {
	g := &Generator{
		caller:   caller,
		prompts:  prompts,
		maxChars: guard.SummaryMaxChars,
		maxTags:  DefaultMaxTags,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the fields selected by mode. In BOTH mode a field
// that could not be parsed is reported on the result and the call
// only fails when neither field parsed.
func (g *Generator) Generate(ctx context.Context, unit api.ContentUnit, mode api.MetadataMode, provider api.Provider) (*api.MetadataResult, error) {
	if unit.IsBlank() {
		return nil, fmt.Errorf("cannot generate metadata for '%s': %w", unit.ID, api.ErrEmptyInput)
	}

	task := mode.Task()
	systemPrompt, err := g.prompts.Get(task, provider, map[string]any{
		"maxTags": g.maxTags,
	})
	if err != nil {
		return nil, err
	}

	guarded := guard.Apply(unit.Text(), g.maxChars)
	resp, err := g.caller.Call(ctx, provider, api.CompletionRequest{
		Task:         task,
		SystemPrompt: systemPrompt,
		UserContent:  guarded.Text,
		Temperature:  task.Temperature(),
	})
	if err != nil {
		return nil, err
	}

	res := &api.MetadataResult{}
	switch mode {
	case api.MetadataTitle:
		title, err := ParseTitle(resp.Text)
		if err != nil {
			return nil, err
		}
		res.Title = &title
	case api.MetadataTags:
		tags, err := ParseTags(resp.Text)
		if err != nil {
			return nil, err
		}
		res.Tags = g.limit(tags)
	default:
		res = ParseTitleAndTags(resp.Text)
		if res.Title == nil && res.Tags == nil {
			return nil, errors.Join(res.TitleErr, res.TagsErr)
		}
		res.Tags = g.limit(res.Tags)
	}

	return res, nil
}

// limit keeps the first maxTags tags. Models do not always respect the
// count asked for in the prompt.
func (g *Generator) limit(tags []string) []string {
	if len(tags) > g.maxTags {
		return tags[:g.maxTags]
	}
	return tags
}
