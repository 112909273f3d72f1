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

// Package worker runs the background embedding jobs enqueued by the
// server.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const DefaultConcurrency = 10

type Worker struct {
	rdb         redis.UniversalClient
	concurrency int
	handler     asynq.Handler

	asynqServer *asynq.Server
}

// New creates a worker consuming embedding batches from rdb with the
// given handler. A non-positive concurrency falls back to
// DefaultConcurrency.
func New(rdb redis.UniversalClient, concurrency int, handler asynq.Handler) *Worker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Worker{
		rdb:         rdb,
		concurrency: concurrency,
		handler:     handler,
	}
}

// Mux returns the task routing used by the worker.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeEmbedBatch, w.handler)
	return mux
}

// Start processes tasks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.asynqServer = asynq.NewServerFromRedisClient(
		w.rdb,
		asynq.Config{
			Concurrency: w.concurrency,
			Logger:      newLogger(),
		},
	)

	if err := w.asynqServer.Start(w.Mux()); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	slog.Info("worker started", "concurrency", w.concurrency)

	<-ctx.Done()
	slog.Info("shutting down worker")
	w.asynqServer.Shutdown()
	return nil
}

// logger routes asynq logs through slog.
type logger struct {
	l *slog.Logger
}

func newLogger() *logger {
	return &logger{l: slog.Default().With("component", "asynq")}
}

func (l *logger) Debug(args ...any) { l.l.Debug(fmt.Sprint(args...)) }
func (l *logger) Info(args ...any)  { l.l.Info(fmt.Sprint(args...)) }
func (l *logger) Warn(args ...any)  { l.l.Warn(fmt.Sprint(args...)) }
func (l *logger) Error(args ...any) { l.l.Error(fmt.Sprint(args...)) }
func (l *logger) Fatal(args ...any) { l.l.Error(fmt.Sprint(args...)) }
