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

package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/markdown"
)

// Parse reads a summary from a provider response. A JSON object is
// tried first, then markdown sections with the canonical headings.
func Parse(text string) (*api.StructuredSummary, error) {
	if s, ok := parseJSON(text); ok {
		return s, nil
	}
	return parseMarkdown(text)
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		*l = []string{s}
	}
	return nil
}

type jsonSummary struct {
	ExecutiveSummary string     `json:"executiveSummary"`
	Description      string     `json:"description"`
	KeyLearnings     stringList `json:"keyLearnings"`
	Blockers         stringList `json:"blockers"`
	NextSteps        stringList `json:"nextSteps"`
}

func parseJSON(text string) (*api.StructuredSummary, bool) {
	raw := stripCodeFence(strings.TrimSpace(text))
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var js jsonSummary
	if err := json.Unmarshal([]byte(raw[start:end+1]), &js); err != nil {
		return nil, false
	}
	if strings.TrimSpace(js.ExecutiveSummary) == "" && strings.TrimSpace(js.Description) == "" {
		return nil, false
	}

	return &api.StructuredSummary{
		ExecutiveSummary: strings.TrimSpace(js.ExecutiveSummary),
		Description:      strings.TrimSpace(js.Description),
		KeyLearnings:     cleanItems(js.KeyLearnings),
		Blockers:         blockers(js.Blockers),
		NextSteps:        cleanItems(js.NextSteps),
	}, true
}

func parseMarkdown(text string) (*api.StructuredSummary, error) {
	sections := markdown.Sections(markdown.Parse(text))

	var (
		s     api.StructuredSummary
		found int
	)
	lookup := func(title string) (markdown.Section, bool) {
		sec, ok := markdown.Lookup(sections, title)
		if ok {
			found++
		}
		return sec, ok
	}

	if sec, ok := lookup(api.SectionExecutiveSummary); ok {
		s.ExecutiveSummary = sec.Text()
	}
	if sec, ok := lookup(api.SectionDescription); ok {
		s.Description = sec.Text()
	}
	if sec, ok := lookup(api.SectionKeyLearnings); ok {
		s.KeyLearnings = cleanItems(sec.Items())
	}
	if sec, ok := lookup(api.SectionBlockers); ok {
		s.Blockers = blockers(sec.Items())
	}
	if sec, ok := lookup(api.SectionNextSteps); ok {
		s.NextSteps = cleanItems(sec.Items())
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: no summary sections found", api.ErrMalformedResponse)
	}
	return &s, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var noneMarkers = map[string]bool{
	"none":                   true,
	"n/a":                    true,
	"na":                     true,
	"nothing":                true,
	"none identified":        true,
	"no blockers":            true,
	"no blockers found":      true,
	"no blockers identified": true,
}

// blockers returns nil when the model identified no blockers.
func blockers(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range cleanItems(items) {
		if noneMarkers[strings.ToLower(strings.TrimRight(item, ".!"))] {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
