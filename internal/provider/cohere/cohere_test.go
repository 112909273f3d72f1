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

package cohere_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/provider/cohere"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/v2/embed", r.URL.Path)

		var req struct {
			Texts     []string `json:"texts"`
			InputType string   `json:"input_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		floats := make([][]float64, 0, len(req.Texts))
		for range req.Texts {
			floats = append(floats, []float64{0.25, 0.5})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "embed-1",
			"response_type": "embeddings_by_type",
			"embeddings":    map[string]any{"float": floats},
			"texts":         req.Texts,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedDocumentsSplitsLargeDocuments(t *testing.T) {
	var requests atomic.Int32
	srv := newServer(t, &requests)
	p := cohere.New(cohere.Config{APIKey: "test", BaseURL: srv.URL})

	chunks := make([]string, cohere.EmbedMaxTexts+4)
	for i := range chunks {
		chunks[i] = "chunk"
	}

	res, err := p.EmbedDocuments(context.Background(), []*api.EmbedDocumentRequest{{Title: "big", Chunks: chunks}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Len(t, res[0].Values, len(chunks))
	for _, v := range res[0].Values {
		assert.Equal(t, []float32{0.25, 0.5}, v)
	}
	assert.Equal(t, int32(2), requests.Load())
}

func TestEmbedQuery(t *testing.T) {
	var requests atomic.Int32
	srv := newServer(t, &requests)
	p := cohere.New(cohere.Config{APIKey: "test", BaseURL: srv.URL})

	v, err := p.EmbedQuery(context.Background(), "what")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5}, v)
	assert.Equal(t, uint(cohere.DefaultDimensions), p.GetDimensions())
}
