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

package jina_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/provider"
	"github.com/alan-mat/cognote/internal/provider/jina"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Task       string   `json:"task"`
	Dimensions uint     `json:"dimensions"`
}

func newServer(t *testing.T, requests *atomic.Int32, last *embedRequest) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*last = req

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"index": i, "embedding": []float32{float32(i), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedDocumentsOrdersByIndex(t *testing.T) {
	var (
		requests atomic.Int32
		last     embedRequest
	)
	srv := newServer(t, &requests, &last)
	p := jina.New(jina.Config{APIKey: "test", BaseURL: srv.URL, Dimensions: 2})

	res, err := p.EmbedDocuments(context.Background(), []*api.EmbedDocumentRequest{
		{Title: "note", Chunks: []string{"a", "b", "c"}},
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}, {2, 1}}, res[0].Values)

	assert.Equal(t, "retrieval.passage", last.Task)
	assert.Equal(t, jina.DefaultEmbeddingModel, last.Model)
	assert.Equal(t, uint(2), last.Dimensions)
	assert.Equal(t, uint(2), p.GetDimensions())
}

func TestEmbedDocumentsSplitsLargeDocuments(t *testing.T) {
	var (
		requests atomic.Int32
		last     embedRequest
	)
	srv := newServer(t, &requests, &last)
	p := jina.New(jina.Config{APIKey: "test", BaseURL: srv.URL})

	chunks := make([]string, jina.EmbedItemsMaxLength+1)
	for i := range chunks {
		chunks[i] = "chunk"
	}

	res, err := p.EmbedDocuments(context.Background(), []*api.EmbedDocumentRequest{{Title: "big", Chunks: chunks}})
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, int32(2), requests.Load())
}

func TestEmbedQuery(t *testing.T) {
	var (
		requests atomic.Int32
		last     embedRequest
	)
	srv := newServer(t, &requests, &last)
	p := jina.New(jina.Config{APIKey: "test", BaseURL: srv.URL})

	vec, err := p.EmbedQuery(context.Background(), "weekly sync")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
	assert.Equal(t, "retrieval.query", last.Task)
}

func TestEmbedErrorsAreClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	p := jina.New(jina.Config{APIKey: "test", BaseURL: srv.URL})
	_, err := p.EmbedQuery(context.Background(), "q")
	require.Error(t, err)

	perr := provider.Classify(api.ProviderOpenAI, err)
	assert.Equal(t, api.KindRateLimit, perr.Kind)
}
