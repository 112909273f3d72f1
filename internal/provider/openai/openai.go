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

package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/provider"
	"github.com/sashabaranov/go-openai"
)

const (
	embedMaxDocsLength = 2048

	DefaultModel          = openai.GPT4Dot1Mini
	DefaultVisionModel    = openai.GPT4o
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultMaxTokens      = 2048
	DefaultDimensions     = 1536
)

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	VisionModel    string
	EmbeddingModel string
	MaxTokens      int
	Dimensions     int
	HTTPClient     *http.Client
}

// OpenAIProvider is the chat-completion style adapter. It also
// serves as an embedder.
type OpenAIProvider struct {
	client *openai.Client

	model          string
	visionModel    string
	embeddingModel string
	maxTokens      int
	vectorDims     int
}

func New(cfg Config) *OpenAIProvider {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}

	p := &OpenAIProvider{
		client:         openai.NewClientWithConfig(c),
		model:          DefaultModel,
		visionModel:    DefaultVisionModel,
		embeddingModel: DefaultEmbeddingModel,
		maxTokens:      DefaultMaxTokens,
		vectorDims:     DefaultDimensions,
	}
	if cfg.Model != "" {
		p.model = cfg.Model
	}
	if cfg.VisionModel != "" {
		p.visionModel = cfg.VisionModel
	}
	if cfg.EmbeddingModel != "" {
		p.embeddingModel = cfg.EmbeddingModel
	}
	if cfg.MaxTokens > 0 {
		p.maxTokens = cfg.MaxTokens
	}
	if cfg.Dimensions > 0 {
		p.vectorDims = cfg.Dimensions
	}
	return p
}

func (p OpenAIProvider) Complete(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	messages := p.systemMessages(req)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserContent,
	})

	return p.createChatCompletion(ctx, p.chatRequest(req, p.model, messages))
}

func (p OpenAIProvider) CompleteVision(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, fmt.Errorf("vision request failed: %w: missing image", api.ErrEmptyInput)
	}

	parts := make([]openai.ChatMessagePart, 0, 2)
	if req.UserContent != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: req.UserContent,
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    req.Image.DataURL(),
			Detail: openai.ImageURLDetailAuto,
		},
	})

	messages := p.systemMessages(req)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	return p.createChatCompletion(ctx, p.chatRequest(req, p.visionModel, messages))
}

func (p OpenAIProvider) chatRequest(req api.CompletionRequest, model string, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	openaiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: req.Temperature,
	}
	if openaiReq.Temperature == 0 {
		// zero is dropped from the request body
		openaiReq.Temperature = math.SmallestNonzeroFloat32
	}

	if req.ModelName != "" {
		openaiReq.Model = req.ModelName
	}
	if req.MaxTokens > 0 {
		openaiReq.MaxTokens = req.MaxTokens
	}
	if req.JSON {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return openaiReq
}

func (p OpenAIProvider) systemMessages(req api.CompletionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return messages
}

func (p OpenAIProvider) createChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*api.CompletionResponse, error) {
	res, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}

	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices: %w", api.ErrMalformedResponse)
	}

	return &api.CompletionResponse{
		Text:     res.Choices[0].Message.Content,
		Provider: api.ProviderOpenAI,
		Model:    res.Model,
	}, nil
}

func (p OpenAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	openaiReq := &openai.EmbeddingRequestStrings{
		Input:          []string{q},
		Model:          openai.EmbeddingModel(p.embeddingModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     p.vectorDims,
	}

	res, err := p.client.CreateEmbeddings(ctx, openaiReq)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("embedding response has no data: %w", api.ErrMalformedResponse)
	}

	return res.Data[0].Embedding, nil
}

func (p OpenAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		if len(doc.Chunks) > embedMaxDocsLength {
			return nil, fmt.Errorf("length of chunks exceeds limit: accepts '%d', received '%d'", embedMaxDocsLength, len(doc.Chunks))
		}

		openaiReq := &openai.EmbeddingRequestStrings{
			Input:          doc.Chunks,
			Model:          openai.EmbeddingModel(p.embeddingModel),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     p.vectorDims,
		}

		res, err := p.client.CreateEmbeddings(ctx, openaiReq)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, wrapError(err))
		}

		vals := make([][]float32, 0, len(res.Data))
		for _, e := range res.Data {
			vals = append(vals, e.Embedding)
		}

		docEmbeddings = append(docEmbeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return docEmbeddings, nil
}

func (p OpenAIProvider) GetDimensions() uint {
	return uint(p.vectorDims)
}

// wrapError exposes the HTTP status of SDK errors to the classifier.
func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &provider.StatusError{Code: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &provider.StatusError{Code: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return err
}
