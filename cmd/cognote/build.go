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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/config"
	"github.com/alan-mat/cognote/internal/embedding"
	"github.com/alan-mat/cognote/internal/function"
	"github.com/alan-mat/cognote/internal/http"
	"github.com/alan-mat/cognote/internal/metadata"
	"github.com/alan-mat/cognote/internal/prompt"
	"github.com/alan-mat/cognote/internal/provider"
	"github.com/alan-mat/cognote/internal/provider/anthropic"
	"github.com/alan-mat/cognote/internal/provider/cohere"
	"github.com/alan-mat/cognote/internal/provider/gemini"
	"github.com/alan-mat/cognote/internal/provider/jina"
	"github.com/alan-mat/cognote/internal/provider/openai"
	"github.com/alan-mat/cognote/internal/store"
	"github.com/alan-mat/cognote/internal/summary"
	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alan-mat/cognote/internal/usage"
	"github.com/alan-mat/cognote/internal/vector"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

var ErrNoProvider = errors.New("no completion provider configured")

// app holds the collaborators shared by the subcommands. Fields are
// built on demand, so a subcommand only connects to what it uses.
type app struct {
	conf *config.Config

	rdb       *redis.Client
	ledger    usage.Ledger
	router    *provider.Router
	embedder  provider.Embedder
	vectors   vector.Store
	repo      store.Repository
	prompts   *prompt.Catalog
	transport transport.Transport

	closers []func() error
}

func newApp(conf *config.Config) *app {
	return &app{conf: conf}
}

// Close releases every connection opened by the app.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) redisClient() *redis.Client {
	if a.rdb != nil {
		return a.rdb
	}
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     a.conf.Transport.Addr,
		Username: a.conf.Transport.Username,
		Password: a.conf.Transport.Password,
		DB:       a.conf.Transport.DB,
	})
	a.closers = append(a.closers, a.rdb.Close)
	return a.rdb
}

func (a *app) jobTransport() transport.Transport {
	if a.transport == nil {
		a.transport = transport.NewRedisTransport(a.redisClient())
	}
	return a.transport
}

func (a *app) usageLedger() usage.Ledger {
	if a.ledger != nil {
		return a.ledger
	}

	uc := a.conf.Usage
	if !uc.Enabled {
		a.ledger = usage.NopLedger{}
		return a.ledger
	}

	var ledger usage.Ledger = usage.NewRedisLedger(a.redisClient(),
		usage.WithLimit(uc.Limit),
		usage.WithWindow(uc.Window),
	)
	if uc.RPM > 0 {
		ledger = usage.NewLimiterLedger(ledger, float64(uc.RPM), uc.Burst)
	}
	a.ledger = ledger
	return a.ledger
}

func (a *app) providerRouter() (*provider.Router, error) {
	if a.router != nil {
		return a.router, nil
	}

	pc := a.conf.Providers
	opts := []provider.RouterOption{
		provider.WithLedger(a.usageLedger()),
		provider.WithTimeout(pc.Timeout),
	}
	adapters := 0

	if pc.OpenAI.APIKey != "" {
		opts = append(opts, provider.WithAdapter(api.ProviderOpenAI, openai.New(openai.Config{
			APIKey:         pc.OpenAI.APIKey,
			BaseURL:        pc.OpenAI.BaseURL,
			Model:          pc.OpenAI.Model,
			VisionModel:    pc.OpenAI.VisionModel,
			EmbeddingModel: a.conf.Embedding.Model,
			MaxTokens:      pc.OpenAI.MaxTokens,
			Dimensions:     int(a.conf.Embedding.Dimensions),
		})))
		adapters++
	}
	if pc.Anthropic.APIKey != "" {
		p, err := anthropic.New(anthropic.Config{
			APIKey:    pc.Anthropic.APIKey,
			BaseURL:   pc.Anthropic.BaseURL,
			Model:     pc.Anthropic.Model,
			MaxTokens: pc.Anthropic.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, provider.WithAdapter(api.ProviderAnthropic, p))
		adapters++
	}
	if adapters == 0 {
		return nil, fmt.Errorf("%w: set %s or %s", ErrNoProvider,
			pc.OpenAI.APIKeyEnv, pc.Anthropic.APIKeyEnv)
	}

	a.router = provider.NewRouter(opts...)
	return a.router, nil
}

func (a *app) embeddings(ctx context.Context) (provider.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}

	ec := a.conf.Embedding
	pc := a.conf.Providers

	switch provider.EmbedderType(ec.Provider) {
	case provider.EmbedderOpenAI:
		key, kerr := pc.OpenAI.RequireKey()
		if kerr != nil {
			return nil, kerr
		}
		a.embedder = openai.New(openai.Config{
			APIKey:         key,
			BaseURL:        pc.OpenAI.BaseURL,
			EmbeddingModel: ec.Model,
			Dimensions:     int(ec.Dimensions),
		})
	case provider.EmbedderGemini:
		key, kerr := pc.Gemini.RequireKey()
		if kerr != nil {
			return nil, kerr
		}
		g, gerr := gemini.New(ctx, gemini.Config{
			APIKey:         key,
			BaseURL:        pc.Gemini.BaseURL,
			EmbeddingModel: ec.Model,
			Dimensions:     int(ec.Dimensions),
		})
		if gerr != nil {
			return nil, gerr
		}
		a.embedder = g
	case provider.EmbedderCohere:
		key, kerr := pc.Cohere.RequireKey()
		if kerr != nil {
			return nil, kerr
		}
		a.embedder = cohere.New(cohere.Config{
			APIKey:         key,
			BaseURL:        pc.Cohere.BaseURL,
			EmbeddingModel: ec.Model,
			Timeout:        pc.Timeout,
		})
	case provider.EmbedderJina:
		key, kerr := pc.Jina.RequireKey()
		if kerr != nil {
			return nil, kerr
		}
		a.embedder = jina.New(jina.Config{
			APIKey:         key,
			BaseURL:        pc.Jina.BaseURL,
			EmbeddingModel: ec.Model,
			Dimensions:     int(ec.Dimensions),
			Timeout:        pc.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider '%s'", ec.Provider)
	}
	return a.embedder, nil
}

func (a *app) vectorStore(ctx context.Context) (vector.Store, error) {
	if a.vectors != nil {
		return a.vectors, nil
	}

	embedder, err := a.embeddings(ctx)
	if err != nil {
		return nil, err
	}

	vc := a.conf.VectorStore
	dsn := vc.DSN
	if dsn == "" {
		dsn = a.conf.Database.DSN
	}

	vs, err := vector.NewStore(ctx, vector.StoreConfig{
		Type:       vector.StoreType(vc.Type),
		Collection: vc.Collection,
		Dimensions: embedder.GetDimensions(),
		Host:       vc.Host,
		Port:       vc.Port,
		APIKey:     vc.APIKey,
		DSN:        dsn,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("vector store ready", "type", vc.Type, "collection", vc.Collection)

	a.vectors = vs
	a.closers = append(a.closers, vs.Close)
	return a.vectors, nil
}

func (a *app) repository(ctx context.Context) (store.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}

	dsn := a.conf.Database.DSN
	if dsn == "" {
		slog.Warn("no database configured, artifacts are kept in memory")
		a.repo = store.NewMemoryRepository()
		return a.repo, nil
	}

	repo, err := store.NewPostgresRepositoryFromDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		repo.Close()
		return nil
	})
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}

	a.repo = repo
	return a.repo, nil
}

func (a *app) promptCatalog() (*prompt.Catalog, error) {
	if a.prompts != nil {
		return a.prompts, nil
	}
	c, err := prompt.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	a.prompts = c
	return a.prompts, nil
}

// functions builds the in-process function boundary. The embedding
// backed tasks stay unavailable when no embedder can be built.
func (a *app) functions(ctx context.Context) (*function.Handler, error) {
	router, err := a.providerRouter()
	if err != nil {
		return nil, err
	}
	prompts, err := a.promptCatalog()
	if err != nil {
		return nil, err
	}
	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}

	deps := function.Deps{
		Caller:  router,
		Prompts: prompts,
		Summaries: summary.New(router, prompts,
			summary.WithMaxChars(a.conf.Summary.MaxChars),
			summary.WithJSONProviders(api.ProviderOpenAI),
		),
		Metadata: metadata.New(router, prompts,
			metadata.WithMaxChars(a.conf.Metadata.MaxChars),
			metadata.WithMaxTags(a.conf.Metadata.MaxTags),
		),
		Repository:        repo,
		Fetcher:           imageFetcher(),
		EmbeddingMaxChars: a.conf.Embedding.MaxChars,
	}

	if vs, err := a.vectorStore(ctx); err != nil {
		slog.Warn("embedding disabled", "error", err)
	} else {
		deps.Embedder = a.embedder
		deps.Vectors = vs
	}

	return function.New(deps), nil
}

func (a *app) processor(ctx context.Context) (*embedding.Processor, error) {
	vs, err := a.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return embedding.NewProcessor(a.embedder, vs,
		embedding.WithBatchSize(a.conf.Embedding.BatchSize),
		embedding.WithMaxChars(a.conf.Embedding.MaxChars),
	), nil
}

func (a *app) similarity(ctx context.Context) (*vector.Engine, error) {
	vs, err := a.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return vector.NewEngine(vs, a.embedder), nil
}

func (a *app) dispatcher() *tasks.Dispatcher {
	client := asynq.NewClientFromRedisClient(a.redisClient())
	return tasks.NewDispatcher(client, a.jobTransport())
}

func (a *app) stats() *usage.StatsCache {
	return usage.NewStatsCache(a.usageLedger(), a.conf.Usage.CacheSize, a.conf.Usage.CacheTTL)
}

func imageFetcher() *http.Client {
	c := http.NewClient("")
	return &c
}
