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

package jina

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/http"
	"github.com/alan-mat/cognote/internal/provider"
)

const (
	Endpoint              = "https://api.jina.ai"
	DefaultEmbeddingModel = "jina-embeddings-v3"
	DefaultDimensions     = 1024
	EmbedItemsMaxLength   = 2048
)

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
	Timeout        time.Duration
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Task       string   `json:"task"`
	Dimensions uint     `json:"dimensions"`
}

type embeddingResponse struct {
	Model     string `json:"model"`
	UsageInfo struct {
		TotalTokens  int `json:"total_tokens"`
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// JinaAIProvider embeds content with the Jina embeddings API.
type JinaAIProvider struct {
	client     http.Client
	model      string
	vectorDims uint
}

func New(cfg Config) *JinaAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = Endpoint
	}
	opts := []http.ClientOption{http.WithApiKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, http.WithTimeout(cfg.Timeout))
	}

	p := &JinaAIProvider{
		client:     http.NewClient(cfg.BaseURL, opts...),
		model:      DefaultEmbeddingModel,
		vectorDims: DefaultDimensions,
	}
	if cfg.EmbeddingModel != "" {
		p.model = cfg.EmbeddingModel
	}
	if cfg.Dimensions > 0 {
		p.vectorDims = uint(cfg.Dimensions)
	}
	return p
}

func (p *JinaAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	resp, err := p.requestEmbedding(ctx, "retrieval.query", []string{q})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("failed to deserialize embeddings")
	}
	return resp.Data[0].Embedding, nil
}

func (p *JinaAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docs = splitDocsReqLen(EmbedItemsMaxLength, docs)
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		slog.Debug("embedding document", "name", doc.Title, "chunks", len(doc.Chunks))

		resp, err := p.requestEmbedding(ctx, "retrieval.passage", doc.Chunks)
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(doc.Chunks) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				api.ErrMalformedResponse, len(doc.Chunks), len(resp.Data))
		}

		vals := make([][]float32, len(resp.Data))
		for _, e := range resp.Data {
			if e.Index < 0 || e.Index >= len(vals) {
				return nil, fmt.Errorf("%w: embedding index %d out of range", api.ErrMalformedResponse, e.Index)
			}
			vals[e.Index] = e.Embedding
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return embeddings, nil
}

func (p *JinaAIProvider) GetDimensions() uint {
	return p.vectorDims
}

func (p *JinaAIProvider) requestEmbedding(ctx context.Context, task string, input []string) (*embeddingResponse, error) {
	req := embeddingRequest{
		Input:      input,
		Model:      p.model,
		Task:       task,
		Dimensions: p.vectorDims,
	}

	var resp embeddingResponse
	err := p.client.Request(ctx, http.MethodPost, "/v1/embeddings", req, &resp)
	if err != nil {
		var serr *http.StatusError
		if errors.As(err, &serr) {
			return nil, &provider.StatusError{Code: serr.Code, Message: serr.Body, Err: err}
		}
		return nil, err
	}
	return &resp, nil
}

// splitDocsReqLen splits documents holding more chunks than a single
// request accepts.
func splitDocsReqLen(maxLen int, docs []*api.EmbedDocumentRequest) []*api.EmbedDocumentRequest {
	newDocs := make([]*api.EmbedDocumentRequest, 0, len(docs))

	for _, doc := range docs {
		if len(doc.Chunks) <= maxLen {
			newDocs = append(newDocs, doc)
			continue
		}

		for start := 0; start < len(doc.Chunks); start += maxLen {
			end := min(start+maxLen, len(doc.Chunks))
			newDocs = append(newDocs, &api.EmbedDocumentRequest{
				Title:  doc.Title,
				Chunks: doc.Chunks[start:end],
			})
		}
	}

	return newDocs
}
