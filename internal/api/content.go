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

import "strings"

// ContentUnit is the minimal piece of content that can be embedded
// or summarized. The surrounding note, image or document owns it;
// here it is only ever passed by value.
type ContentUnit struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Body  *string `json:"body"`
}

// NewContentUnit is a helper returning a [ContentUnit] with a non-nil body.
func NewContentUnit(id, title, body string) ContentUnit {
	return ContentUnit{
		ID:    id,
		Title: title,
		Body:  &body,
	}
}

// Text returns the trimmed body, or an empty string if the body is nil.
func (c ContentUnit) Text() string {
	if c.Body == nil {
		return ""
	}
	return strings.TrimSpace(*c.Body)
}

// IsBlank reports whether the body is missing or whitespace only.
func (c ContentUnit) IsBlank() bool {
	return c.Text() == ""
}

// Embedding is a vector tied to the current body of a content unit.
// An empty Vector means the unit has not been embedded yet.
type Embedding struct {
	ContentID string
	Scope     string
	Title     string
	Content   string
	Vector    []float32
}

func (e Embedding) IsEmpty() bool {
	return len(e.Vector) == 0
}

// SimilarityResult is a single retrieval hit. Score is a cosine
// similarity clamped to [0, 1].
type SimilarityResult struct {
	ContentID string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Score     float64 `json:"similarity"`
}

// Accepted reports whether the result passes the given threshold.
func (r SimilarityResult) Accepted(threshold float64) bool {
	return r.Score >= threshold
}
