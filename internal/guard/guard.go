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

// Package guard enforces size ceilings on text sent to providers.
package guard

import (
	"fmt"
	"unicode/utf8"
)

// Default ceilings, in characters.
const (
	SummaryMaxChars   = 100_000
	EmbeddingMaxChars = 30_000
)

// Result is the outcome of [Apply]. OriginalLength is counted
// in Unicode code points, as is the ceiling.
type Result struct {
	Text           string
	Truncated      bool
	OriginalLength int
}

// Apply cuts text to its first maxChars characters. Text within the
// ceiling is returned unchanged. A non-positive ceiling disables the guard.
func Apply(text string, maxChars int) Result {
	n := utf8.RuneCountInString(text)
	if maxChars <= 0 || n <= maxChars {
		return Result{Text: text, OriginalLength: n}
	}

	cut := 0
	for i := range text {
		if cut == maxChars {
			return Result{
				Text:           text[:i],
				Truncated:      true,
				OriginalLength: n,
			}
		}
		cut++
	}
	// unreachable, n > maxChars guarantees the loop returns
	return Result{Text: text, OriginalLength: n}
}

// Len returns the length of the guarded text in characters.
func (r Result) Len() int {
	return utf8.RuneCountInString(r.Text)
}

// Note renders a human readable truncation note, or an empty
// string when nothing was cut.
func (r Result) Note() string {
	if !r.Truncated {
		return ""
	}
	return fmt.Sprintf("Note: input was truncated from %d to %d characters.", r.OriginalLength, r.Len())
}
