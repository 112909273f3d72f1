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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/registry"
	"github.com/alan-mat/cognote/internal/usage"
)

const DefaultTimeout = 60 * time.Second

// Router dispatches completion requests to the adapter of the
// selected provider. Every call is accounted in the usage ledger
// first and runs under its own timeout.
type Router struct {
	adapters *registry.Registry[api.Provider, Completer]
	ledger   usage.Ledger
	timeout  time.Duration
}

type RouterOption func(*Router)

func WithAdapter(p api.Provider, c Completer) RouterOption {
	return func(r *Router) {
		r.adapters.Register(p, c)
	}
}

func WithLedger(l usage.Ledger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.ledger = l
		}
	}
}

// WithTimeout sets the per call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		adapters: registry.New[api.Provider, Completer](),
		ledger:   usage.NopLedger{},
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(p api.Provider, c Completer) {
	r.adapters.Register(p, c)
}

// Supports reports whether an adapter is registered for p.
func (r *Router) Supports(p api.Provider) bool {
	return r.adapters.Exists(p)
}

// Call sends req to the provider. Failures of the provider are
// returned as [*api.ProviderError]; a refusal of the ledger wraps
// [api.ErrQuotaExceeded] and no request is made.
func (r *Router) Call(ctx context.Context, p api.Provider, req api.CompletionRequest) (*api.CompletionResponse, error) {
	adapter, ok := r.adapters.Get(p)
	if !ok {
		return nil, fmt.Errorf("%w: %w '%s'", api.ErrUnknownProvider, ErrNoAdapter, p)
	}

	err := r.ledger.Reserve(ctx, usage.Usage{
		Subject:  usage.SubjectFrom(ctx),
		Provider: p,
		Task:     req.Task,
	})
	if err != nil {
		if !errors.Is(err, api.ErrQuotaExceeded) {
			return nil, fmt.Errorf("%w: %w", api.ErrQuotaExceeded, err)
		}
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	var resp *api.CompletionResponse
	if req.IsVision() {
		resp, err = adapter.CompleteVision(callCtx, req)
	} else {
		resp, err = adapter.Complete(callCtx, req)
	}

	if err != nil {
		perr := Classify(p, err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			perr.Kind = api.KindTimeout
		}
		slog.Warn("provider call failed", "provider", p, "task", req.Task, "kind", perr.Kind, "took", time.Since(start), "err", err)
		return nil, perr
	}

	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, &api.ProviderError{
			Kind:     api.KindMalformedResponse,
			Provider: p,
			Message:  "response contains no text",
			Err:      api.ErrMalformedResponse,
		}
	}

	resp.Provider = p
	slog.Debug("provider call completed", "provider", p, "task", req.Task, "model", resp.Model, "took", time.Since(start))
	return resp, nil
}
