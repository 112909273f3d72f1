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

package metadata

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/markdown"
)

var (
	titlePrefix = regexp.MustCompile(`(?i)^title\s*:\s*`)
	tagsPrefix  = regexp.MustCompile(`(?i)^tags\s*:\s*`)
)

// ParseTitle reads a title from a whole response. Surrounding quotes
// and a leading "TITLE:" label are removed.
func ParseTitle(text string) (string, error) {
	t := strings.TrimSpace(markdown.StripInline(strings.TrimSpace(text)))
	t = titlePrefix.ReplaceAllString(t, "")
	t = trimQuotes(t)
	if t == "" {
		return "", fmt.Errorf("%w: empty title", api.ErrMalformedResponse)
	}
	return t, nil
}

// ParseTags splits a comma separated response into tags. Tags are
// deduplicated case-insensitively, keeping the first spelling.
func ParseTags(text string) ([]string, error) {
	t := strings.TrimSpace(markdown.StripInline(strings.TrimSpace(text)))
	t = tagsPrefix.ReplaceAllString(t, "")

	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, raw := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == '\n' }) {
		tag := trimQuotes(strings.TrimLeft(strings.TrimSpace(raw), "#-• "))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: no tags found", api.ErrMalformedResponse)
	}
	return tags, nil
}

// ParseTitleAndTags looks for "TITLE:" and "TAGS:" lines in any order.
// A missing or empty line sets the matching error field.
func ParseTitleAndTags(text string) *api.MetadataResult {
	res := &api.MetadataResult{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(markdown.StripInline(strings.TrimSpace(line)))
		switch {
		case res.Title == nil && titlePrefix.MatchString(line):
			if title, err := ParseTitle(line); err == nil {
				res.Title = &title
			}
		case res.Tags == nil && tagsPrefix.MatchString(line):
			if tags, err := ParseTags(line); err == nil {
				res.Tags = tags
			}
		}
	}

	if res.Title == nil {
		res.TitleErr = fmt.Errorf("%w: missing TITLE line", api.ErrMalformedResponse)
	}
	if res.Tags == nil {
		res.TagsErr = fmt.Errorf("%w: missing TAGS line", api.ErrMalformedResponse)
	}
	return res
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return strings.Trim(s, "“”")
}
