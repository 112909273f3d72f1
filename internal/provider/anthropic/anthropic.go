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

package anthropic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 2048
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// AnthropicProvider is the message style adapter.
type AnthropicProvider struct {
	model     llms.Model
	modelName string
	maxTokens int
}

// New creates the adapter on top of the langchaingo anthropic client.
func New(cfg Config) (*AnthropicProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []anthropic.Option{
		anthropic.WithModel(cfg.Model),
		anthropic.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}

	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return NewWithModel(m, cfg.Model, cfg.MaxTokens), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(m llms.Model, modelName string, maxTokens int) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicProvider{
		model:     m,
		modelName: modelName,
		maxTokens: maxTokens,
	}
}

func (p AnthropicProvider) Complete(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	messages := p.systemMessages(req)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.UserContent))
	return p.generate(ctx, req, messages)
}

func (p AnthropicProvider) CompleteVision(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, fmt.Errorf("vision request failed: %w: missing image", api.ErrEmptyInput)
	}

	parts := []llms.ContentPart{
		llms.BinaryContent{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
	}
	if req.UserContent != "" {
		parts = append(parts, llms.TextContent{Text: req.UserContent})
	}

	messages := p.systemMessages(req)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})
	return p.generate(ctx, req, messages)
}

func (p AnthropicProvider) systemMessages(req api.CompletionRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	return messages
}

func (p AnthropicProvider) generate(ctx context.Context, req api.CompletionRequest, messages []llms.MessageContent) (*api.CompletionResponse, error) {
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	options := []llms.CallOption{
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(float64(req.Temperature)),
	}
	model := p.modelName
	if req.ModelName != "" {
		model = req.ModelName
		options = append(options, llms.WithModel(req.ModelName))
	}

	resp, err := p.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("anthropic GenerateContent failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anthropic returned no choices: %w", api.ErrMalformedResponse)
	}

	return &api.CompletionResponse{
		Text:     resp.Choices[0].Content,
		Provider: api.ProviderAnthropic,
		Model:    model,
	}, nil
}
