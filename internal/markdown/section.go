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

package markdown

import (
	"regexp"
	"strings"
)

// Section groups the blocks following a heading up to the next heading.
type Section struct {
	Title  string
	Blocks []Block
}

// Items returns the plain text of the list items in the section. When
// the section has no list items, every non-empty paragraph line is an item.
func (s Section) Items() []string {
	var items []string
	for _, b := range s.Blocks {
		if b.Kind == BlockListItem {
			items = append(items, b.Plain())
		}
	}
	if items != nil {
		return items
	}

	for _, b := range s.Blocks {
		if b.Kind != BlockParagraph {
			continue
		}
		for _, line := range strings.Split(b.Plain(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				items = append(items, line)
			}
		}
	}
	return items
}

// Text returns the plain text of the section, one block per paragraph.
func (s Section) Text() string {
	parts := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		p := b.Plain()
		if b.Kind == BlockListItem {
			p = "- " + p
		}
		parts = append(parts, p)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// Sections groups blocks by heading. Blocks before the first
// heading are dropped.
func Sections(blocks []Block) []Section {
	var (
		out     []Section
		current *Section
	)
	for _, b := range blocks {
		if b.Kind == BlockHeading {
			out = append(out, Section{Title: b.Plain()})
			current = &out[len(out)-1]
			continue
		}
		if current != nil {
			current.Blocks = append(current.Blocks, b)
		}
	}
	return out
}

var titleNoise = regexp.MustCompile(`^[\d.)\s]+|[:\s]+$`)

// NormalizeTitle lowercases a heading and strips leading
// numbering and a trailing colon, for case-insensitive matching.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(StripInline(title))
	t = titleNoise.ReplaceAllString(t, "")
	return strings.ToLower(strings.Join(strings.Fields(t), " "))
}

// Lookup returns the first section whose normalized title equals
// the normalized form of title.
func Lookup(sections []Section, title string) (Section, bool) {
	want := NormalizeTitle(title)
	for _, s := range sections {
		if NormalizeTitle(s.Title) == want {
			return s, true
		}
	}
	return Section{}, false
}
