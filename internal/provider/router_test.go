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

package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/llm"
	"github.com/alan-mat/cognote/internal/provider"
	"github.com/alan-mat/cognote/internal/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	text        string
	err         error
	delay       time.Duration
	calls       int
	visionCalls int
	last        api.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	f.calls++
	return f.respond(ctx, req)
}

func (f *fakeCompleter) CompleteVision(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	f.visionCalls++
	return f.respond(ctx, req)
}

func (f *fakeCompleter) respond(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("request failed: %w", ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &api.CompletionResponse{Text: f.text, Model: "fake-model"}, nil
}

type refusingLedger struct {
	usage.NopLedger
	seen []usage.Usage
}

func (l *refusingLedger) Reserve(_ context.Context, u usage.Usage) error {
	l.seen = append(l.seen, u)
	return fmt.Errorf("%w: test refusal", api.ErrQuotaExceeded)
}

func TestRouterDispatchesToSelectedProvider(t *testing.T) {
	oa := &fakeCompleter{text: "from openai"}
	an := &fakeCompleter{text: "from anthropic"}
	r := provider.NewRouter(
		provider.WithAdapter(api.ProviderOpenAI, oa),
		provider.WithAdapter(api.ProviderAnthropic, an),
	)

	resp, err := r.Call(context.Background(), api.ProviderAnthropic, api.CompletionRequest{Task: api.TaskChat, UserContent: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from anthropic", resp.Text)
	assert.Equal(t, api.ProviderAnthropic, resp.Provider)
	assert.Equal(t, 0, oa.calls)
	assert.Equal(t, 1, an.calls)
}

func TestRouterPassesTemperature(t *testing.T) {
	an := &fakeCompleter{text: "ok"}
	r := provider.NewRouter(provider.WithAdapter(api.ProviderAnthropic, an))

	_, err := r.Call(context.Background(), api.ProviderAnthropic, api.CompletionRequest{
		Task:        api.TaskSummary,
		UserContent: "note",
		Temperature: api.TaskSummary.Temperature(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, an.last.Temperature, 1e-6)
}

func TestRouterUsesVisionEntry(t *testing.T) {
	oa := &fakeCompleter{text: "a cat"}
	r := provider.NewRouter(provider.WithAdapter(api.ProviderOpenAI, oa))

	_, err := r.Call(context.Background(), api.ProviderOpenAI, api.CompletionRequest{
		Task:  api.TaskImageDescription,
		Image: llm.NewBlob("image/png", []byte{0x89, 'P', 'N', 'G'}),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, oa.calls)
	assert.Equal(t, 1, oa.visionCalls)
}

func TestRouterLedgerRefusalPreventsCall(t *testing.T) {
	oa := &fakeCompleter{text: "never"}
	ledger := &refusingLedger{}
	r := provider.NewRouter(provider.WithAdapter(api.ProviderOpenAI, oa), provider.WithLedger(ledger))

	ctx := usage.WithSubject(context.Background(), "user-7")
	_, err := r.Call(ctx, api.ProviderOpenAI, api.CompletionRequest{Task: api.TaskSummary, UserContent: "x"})
	assert.ErrorIs(t, err, api.ErrQuotaExceeded)
	assert.Equal(t, 0, oa.calls)
	require.Len(t, ledger.seen, 1)
	assert.Equal(t, usage.Usage{Subject: "user-7", Provider: api.ProviderOpenAI, Task: api.TaskSummary}, ledger.seen[0])
}

func TestRouterTimeout(t *testing.T) {
	slow := &fakeCompleter{text: "late", delay: time.Second}
	r := provider.NewRouter(provider.WithAdapter(api.ProviderOpenAI, slow), provider.WithTimeout(20*time.Millisecond))

	_, err := r.Call(context.Background(), api.ProviderOpenAI, api.CompletionRequest{Task: api.TaskChat, UserContent: "x"})
	perr, ok := api.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, api.KindTimeout, perr.Kind)
	assert.True(t, perr.Retryable())
	assert.Contains(t, perr.Error(), "timed out")
}

func TestRouterEmptyTextIsMalformed(t *testing.T) {
	r := provider.NewRouter(provider.WithAdapter(api.ProviderOpenAI, &fakeCompleter{text: "  \n"}))

	_, err := r.Call(context.Background(), api.ProviderOpenAI, api.CompletionRequest{Task: api.TaskChat, UserContent: "x"})
	assert.ErrorIs(t, err, api.ErrMalformedResponse)
}

func TestRouterUnknownProvider(t *testing.T) {
	r := provider.NewRouter(provider.WithAdapter(api.ProviderOpenAI, &fakeCompleter{text: "x"}))

	_, err := r.Call(context.Background(), api.ProviderAnthropic, api.CompletionRequest{Task: api.TaskChat})
	assert.ErrorIs(t, err, api.ErrUnknownProvider)
	assert.ErrorIs(t, err, provider.ErrNoAdapter)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want api.ProviderErrorKind
	}{
		{"status 401", &provider.StatusError{Code: 401, Message: "bad key"}, api.KindAuth},
		{"status 403", &provider.StatusError{Code: 403}, api.KindAuth},
		{"status 429", &provider.StatusError{Code: 429}, api.KindRateLimit},
		{"status 504", &provider.StatusError{Code: 504}, api.KindTimeout},
		{"status 500", &provider.StatusError{Code: 500}, api.KindNetwork},
		{"wrapped status", fmt.Errorf("call: %w", &provider.StatusError{Code: 429}), api.KindRateLimit},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), api.KindTimeout},
		{"status in message", errors.New("API returned unexpected status code: 429: slow down"), api.KindRateLimit},
		{"rate limit message", errors.New("rate_limit_error: too fast"), api.KindRateLimit},
		{"auth message", errors.New("invalid x-api-key"), api.KindAuth},
		{"malformed", fmt.Errorf("no choices: %w", api.ErrMalformedResponse), api.KindMalformedResponse},
		{"other", errors.New("connection refused"), api.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := provider.Classify(api.ProviderOpenAI, tt.err)
			require.NotNil(t, perr)
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, api.ProviderOpenAI, perr.Provider)
			assert.ErrorIs(t, perr, tt.err)
		})
	}

	assert.Nil(t, provider.Classify(api.ProviderOpenAI, nil))
}

func TestProviderErrorMessages(t *testing.T) {
	rl := &api.ProviderError{Kind: api.KindRateLimit, Provider: api.ProviderAnthropic}
	to := &api.ProviderError{Kind: api.KindTimeout, Provider: api.ProviderAnthropic}
	assert.Contains(t, rl.Error(), "rate limited")
	assert.Contains(t, to.Error(), "timed out")
	assert.NotEqual(t, rl.Error(), to.Error())
}
