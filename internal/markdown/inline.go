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

import "strings"

// Span is a run of text sharing the same formatting.
type Span struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
}

type marker struct {
	token string
	apply func(*Span)
}

// longer tokens first so "**" wins over "*"
var markers = []marker{
	{"**", func(s *Span) { s.Bold = true }},
	{"__", func(s *Span) { s.Underline = true }},
	{"*", func(s *Span) { s.Italic = true }},
	{"_", func(s *Span) { s.Italic = true }},
}

// ParseInline splits s into formatted spans. An opening marker
// without a matching closer is kept as literal text.
func ParseInline(s string) []Span {
	var (
		spans []Span
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(s); {
		m, ok := markerAt(s, i)
		if !ok {
			plain.WriteByte(s[i])
			i++
			continue
		}

		start := i + len(m.token)
		end := strings.Index(s[start:], m.token)
		if end <= 0 || !isWordBoundary(s, m.token, i) {
			plain.WriteString(m.token)
			i = start
			continue
		}

		flush()
		span := Span{Text: s[start : start+end]}
		m.apply(&span)
		spans = append(spans, span)
		i = start + end + len(m.token)
	}
	flush()

	return spans
}

// StripInline removes inline formatting markers from s.
func StripInline(s string) string {
	var b strings.Builder
	for _, sp := range ParseInline(s) {
		b.WriteString(sp.Text)
	}
	return b.String()
}

func markerAt(s string, i int) (marker, bool) {
	for _, m := range markers {
		if strings.HasPrefix(s[i:], m.token) {
			return m, true
		}
	}
	return marker{}, false
}

// underscores inside words such as snake_case are not markers
func isWordBoundary(s, token string, i int) bool {
	if token[0] != '_' || i == 0 {
		return true
	}
	prev := s[i-1]
	return !(prev >= 'a' && prev <= 'z' || prev >= 'A' && prev <= 'Z' || prev >= '0' && prev <= '9')
}
