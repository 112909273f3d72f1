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

package cohere

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
	"golang.org/x/sync/errgroup"
)

const (
	EmbedMaxTexts = 96

	DefaultEmbeddingModel = "embed-multilingual-v3.0"
	DefaultDimensions     = 1024
)

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Timeout        time.Duration
}

// CohereProvider embeds content with the Cohere v2 API.
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

func New(cfg Config) *CohereProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(cfg.BaseURL))
	}

	p := &CohereProvider{
		client: cohereclient.NewClient(opts...),
		model:  DefaultEmbeddingModel,
	}
	if cfg.EmbeddingModel != "" {
		p.model = cfg.EmbeddingModel
	}
	return p
}

func (p CohereProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, err := p.embed(ctx, []string{q}, cohere.EmbedInputTypeSearchQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds every document, splitting chunk lists longer
// than [EmbedMaxTexts] into concurrent requests.
func (p CohereProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, len(docs))

	for i, doc := range docs {
		values := make([][]float32, len(doc.Chunks))
		g, gctx := errgroup.WithContext(ctx)

		for start := 0; start < len(doc.Chunks); start += EmbedMaxTexts {
			end := min(start+EmbedMaxTexts, len(doc.Chunks))
			g.Go(func() error {
				vectors, err := p.embed(gctx, doc.Chunks[start:end], cohere.EmbedInputTypeSearchDocument)
				if err != nil {
					return err
				}
				copy(values[start:end], vectors)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
		}

		docEmbeddings[i] = &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: values,
		}
	}

	return docEmbeddings, nil
}

func (p CohereProvider) GetDimensions() uint {
	return DefaultDimensions
}

func (p CohereProvider) embed(ctx context.Context, texts []string, inputType cohere.EmbedInputType) ([][]float32, error) {
	resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          p.model,
		InputType:      inputType,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if resp.Embeddings == nil || len(resp.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("embed response does not match request: %w", api.ErrMalformedResponse)
	}

	vectors := make([][]float32, 0, len(resp.Embeddings.Float))
	for _, f64s := range resp.Embeddings.Float {
		vector := make([]float32, 0, len(f64s))
		for _, f := range f64s {
			vector = append(vector, float32(f))
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
