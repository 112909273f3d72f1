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

package api

import (
	"fmt"
	"strings"
)

// StructuredSummary is the five section summary contract.
// Blockers is nil when the model identified none.
type StructuredSummary struct {
	ExecutiveSummary string   `json:"executiveSummary"`
	Description      string   `json:"description"`
	KeyLearnings     []string `json:"keyLearnings"`
	Blockers         []string `json:"blockers"`
	NextSteps        []string `json:"nextSteps"`

	// TruncationNote is set when the input was cut before summarization.
	TruncationNote string `json:"truncationNote,omitempty"`
}

// Markdown renders the summary using the canonical section headings.
func (s StructuredSummary) Markdown() string {
	var b strings.Builder
	section := func(title string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n", title)
	}
	bullets := func(items []string) {
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	section(SectionExecutiveSummary)
	b.WriteString(s.ExecutiveSummary + "\n")
	section(SectionDescription)
	b.WriteString(s.Description + "\n")
	section(SectionKeyLearnings)
	bullets(s.KeyLearnings)
	section(SectionBlockers)
	if s.Blockers == nil {
		b.WriteString("None identified.\n")
	} else {
		bullets(s.Blockers)
	}
	section(SectionNextSteps)
	bullets(s.NextSteps)

	return b.String()
}

// Canonical section headings of a structured summary.
const (
	SectionExecutiveSummary = "Executive Summary"
	SectionDescription      = "Description"
	SectionKeyLearnings     = "Key Learnings"
	SectionBlockers         = "Blockers"
	SectionNextSteps        = "Next Steps"
)

// MetadataMode selects which metadata fields are generated.
type MetadataMode string

const (
	MetadataTitle MetadataMode = "TITLE"
	MetadataTags  MetadataMode = "TAGS"
	MetadataBoth  MetadataMode = "BOTH"
)

// ParseMetadataMode accepts the mode names case-insensitively.
func ParseMetadataMode(s string) (MetadataMode, error) {
	switch MetadataMode(strings.ToUpper(strings.TrimSpace(s))) {
	case MetadataTitle:
		return MetadataTitle, nil
	case MetadataTags:
		return MetadataTags, nil
	case MetadataBoth, "":
		return MetadataBoth, nil
	default:
		return "", fmt.Errorf("invalid metadata mode '%s'", s)
	}
}

// Task returns the generation task serving the mode.
func (m MetadataMode) Task() Task {
	switch m {
	case MetadataTitle:
		return TaskTitle
	case MetadataTags:
		return TaskTags
	default:
		return TaskTitleTags
	}
}

// MetadataResult holds the parsed title and tags. A nil field was
// either not requested or failed to parse, in which case the matching
// error field is set.
type MetadataResult struct {
	Title *string  `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	TitleErr error `json:"-"`
	TagsErr  error `json:"-"`
}
