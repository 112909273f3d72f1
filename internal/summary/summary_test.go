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

package summary_test

import (
	"context"
	"strings"
	"testing"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/prompt"
	"github.com/alan-mat/cognote/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	text  string
	err   error
	calls int
	last  api.CompletionRequest
}

func (f *fakeCaller) Call(_ context.Context, _ api.Provider, req api.CompletionRequest) (*api.CompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &api.CompletionResponse{Text: f.text}, nil
}

func newPipeline(t *testing.T, caller summary.Caller, opts ...summary.Option) *summary.Pipeline {
	catalog, err := prompt.Default()
	require.NoError(t, err)
	return summary.New(caller, catalog, opts...)
}

const jsonResponse = `{
  "executiveSummary": "The team shipped v2.",
  "description": "Release notes for the second version.",
  "keyLearnings": ["Ship smaller", "Test earlier"],
  "blockers": null,
  "nextSteps": ["Plan v3"]
}`

const markdownResponse = `## Executive Summary
The team shipped v2.

## Description
Release notes for the **second** version.

## Key Learnings
- Ship smaller
- Test earlier

## Blockers
None identified.

## Next Steps
1. Plan v3
`

func TestSummarizeBlankInputMakesNoCall(t *testing.T) {
	for _, body := range []*string{nil, ptr(""), ptr("   \n\t ")} {
		caller := &fakeCaller{text: jsonResponse}
		p := newPipeline(t, caller)

		_, err := p.Summarize(context.Background(), api.ContentUnit{ID: "n1", Body: body}, api.ProviderOpenAI)
		assert.ErrorIs(t, err, api.ErrEmptyInput)
		assert.Equal(t, 0, caller.calls)
	}
}

func TestSummarizeJSON(t *testing.T) {
	caller := &fakeCaller{text: jsonResponse}
	p := newPipeline(t, caller)

	s, err := p.Summarize(context.Background(), api.NewContentUnit("n1", "Release", "We shipped v2 today."), api.ProviderOpenAI)
	require.NoError(t, err)

	assert.Equal(t, "The team shipped v2.", s.ExecutiveSummary)
	assert.Equal(t, []string{"Ship smaller", "Test earlier"}, s.KeyLearnings)
	assert.Nil(t, s.Blockers)
	assert.Equal(t, []string{"Plan v3"}, s.NextSteps)
	assert.Empty(t, s.TruncationNote)

	assert.True(t, caller.last.JSON)
	assert.Equal(t, api.TaskSummary, caller.last.Task)
	assert.InDelta(t, 0.2, caller.last.Temperature, 1e-6)
	assert.Equal(t, "We shipped v2 today.", caller.last.UserContent)
	assert.Contains(t, caller.last.SystemPrompt, `titled "Release"`)
}

func TestSummarizeMarkdownFallback(t *testing.T) {
	caller := &fakeCaller{text: markdownResponse}
	p := newPipeline(t, caller)

	s, err := p.Summarize(context.Background(), api.NewContentUnit("n1", "", "body"), api.ProviderAnthropic)
	require.NoError(t, err)

	assert.False(t, caller.last.JSON)
	assert.Equal(t, "The team shipped v2.", s.ExecutiveSummary)
	assert.Equal(t, "Release notes for the second version.", s.Description)
	assert.Equal(t, []string{"Ship smaller", "Test earlier"}, s.KeyLearnings)
	assert.Nil(t, s.Blockers)
	assert.Equal(t, []string{"Plan v3"}, s.NextSteps)
}

func TestSummarizeTruncatesInput(t *testing.T) {
	caller := &fakeCaller{text: jsonResponse}
	p := newPipeline(t, caller, summary.WithMaxChars(10))

	s, err := p.Summarize(context.Background(), api.NewContentUnit("n1", "", strings.Repeat("x", 25)), api.ProviderOpenAI)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("x", 10), caller.last.UserContent)
	assert.Equal(t, "Note: input was truncated from 25 to 10 characters.", s.TruncationNote)
	assert.True(t, strings.HasSuffix(s.Description, s.TruncationNote))
	assert.True(t, strings.HasPrefix(s.Description, "Release notes for the second version."))
}

func TestSummarizeProviderErrorsPassThrough(t *testing.T) {
	rl := &api.ProviderError{Kind: api.KindRateLimit, Provider: api.ProviderOpenAI}
	caller := &fakeCaller{err: rl}
	p := newPipeline(t, caller)

	_, err := p.Summarize(context.Background(), api.NewContentUnit("n1", "", "body"), api.ProviderOpenAI)
	perr, ok := api.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, api.KindRateLimit, perr.Kind)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 1, caller.calls)
}

func TestSummarizeMalformed(t *testing.T) {
	caller := &fakeCaller{text: "**bold** and *italic*"}
	p := newPipeline(t, caller)

	_, err := p.Summarize(context.Background(), api.NewContentUnit("n1", "", "body"), api.ProviderOpenAI)
	assert.ErrorIs(t, err, api.ErrMalformedResponse)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		blockers []string
		learn    []string
	}{
		{
			name:  "fenced json",
			in:    "```json\n" + jsonResponse + "\n```",
			learn: []string{"Ship smaller", "Test earlier"},
		},
		{
			name:     "json with blockers as string",
			in:       `{"executiveSummary":"x","blockers":"Waiting on legal","keyLearnings":[]}`,
			blockers: []string{"Waiting on legal"},
			learn:    []string{},
		},
		{
			name:  "json with none blocker",
			in:    `{"executiveSummary":"x","blockers":["None"],"keyLearnings":["a"]}`,
			learn: []string{"a"},
		},
		{
			name:     "bold headings with colons",
			in:       "**Executive Summary:** \nShort.\n\n**Key Learnings:**\n* one\n* two\n\n**Blockers:**\n- Budget approval\n\n**Next Steps:**\n- follow up",
			blockers: []string{"Budget approval"},
			learn:    []string{"one", "two"},
		},
		{
			name:  "numbered headings, mixed case",
			in:    "# 1. EXECUTIVE SUMMARY\nShort.\n# 3. key learnings\n- one\n",
			learn: []string{"one"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := summary.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.blockers, s.Blockers)
			assert.Equal(t, tt.learn, s.KeyLearnings)
		})
	}
}

func TestParseRejectsUnstructuredText(t *testing.T) {
	for _, in := range []string{"", "**bold** and *italic*", "just a sentence", `{"title": "not a summary"}`} {
		_, err := summary.Parse(in)
		assert.ErrorIs(t, err, api.ErrMalformedResponse, in)
	}
}

func TestMarkdownRendering(t *testing.T) {
	s, err := summary.Parse(markdownResponse)
	require.NoError(t, err)

	again, err := summary.Parse(s.Markdown())
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func ptr(s string) *string {
	return &s
}
