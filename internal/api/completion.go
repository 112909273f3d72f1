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

import "github.com/alan-mat/cognote/internal/llm"

// CompletionRequest is the provider agnostic request accepted by
// the router. Adapters translate it into their wire format.
type CompletionRequest struct {
	// Required
	Task        Task
	UserContent string

	// Optional params
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	ModelName    string

	// JSON asks for constrained JSON output on providers supporting it.
	JSON bool

	// Image is only set on vision requests.
	Image *llm.Blob
}

// IsVision reports whether the request carries image data.
func (r CompletionRequest) IsVision() bool {
	return r.Image != nil && len(r.Image.Data) > 0
}

// CompletionResponse carries the raw text returned by a provider.
type CompletionResponse struct {
	Text     string
	Provider Provider
	Model    string
}

type EmbedDocumentRequest struct {
	Title  string
	Chunks []string
}

type DocumentEmbedding struct {
	Title  string
	Chunks []string
	Values [][]float32
}
