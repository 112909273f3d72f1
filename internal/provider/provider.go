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

package provider

import (
	"context"

	"github.com/alan-mat/cognote/internal/api"
)

// Completer is implemented by the chat provider adapters. Vision
// requests use their own entry point, never Complete.
type Completer interface {
	Complete(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error)
	CompleteVision(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error)
}

// Embedder turns text into vectors. Implementations must return
// vectors of GetDimensions length.
type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error)
	GetDimensions() uint
}

// EmbedderType names an embedding backend in configuration.
type EmbedderType string

const (
	EmbedderOpenAI EmbedderType = "openai"
	EmbedderGemini EmbedderType = "gemini"
	EmbedderCohere EmbedderType = "cohere"
	EmbedderJina   EmbedderType = "jina"
)

// EmbedText embeds a single document of one chunk and returns its vector.
func EmbedText(ctx context.Context, e Embedder, title, text string) ([]float32, error) {
	res, err := e.EmbedDocuments(ctx, []*api.EmbedDocumentRequest{
		{Title: title, Chunks: []string{text}},
	})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || len(res[0].Values) == 0 || len(res[0].Values[0]) == 0 {
		return nil, api.ErrMalformedResponse
	}
	return res[0].Values[0], nil
}
