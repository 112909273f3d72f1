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

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/embedding"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeEmbedBatch = "cognote:embed_batch"
)

type EmbedItem struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Body  *string `json:"body"`
}

type EmbedBatchPayload struct {
	JobID string      `json:"jobId"`
	Scope string      `json:"projectId"`
	User  string      `json:"user"`
	Items []EmbedItem `json:"items"`
}

func (p EmbedBatchPayload) embeddingItems() []embedding.Item {
	items := make([]embedding.Item, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, embedding.Item{
			ContentUnit: api.ContentUnit{ID: it.ID, Title: it.Title, Body: it.Body},
			Scope:       p.Scope,
		})
	}
	return items
}

// NewEmbedBatchTask assigns a job id when the payload has none. The
// job id doubles as the asynq task id.
func NewEmbedBatchTask(p *EmbedBatchPayload) (*asynq.Task, error) {
	if p.JobID == "" {
		p.JobID = uuid.NewString()
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmbedBatch, payload,
		asynq.TaskID(p.JobID),
		asynq.MaxRetry(0),
	), nil
}

// Enqueuer is implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues batch jobs and records their initial trace.
type Dispatcher struct {
	client    Enqueuer
	transport transport.Transport
}

func NewDispatcher(client Enqueuer, transport transport.Transport) *Dispatcher {
	return &Dispatcher{
		client:    client,
		transport: transport,
	}
}

func (d *Dispatcher) EnqueueEmbedBatch(ctx context.Context, p *EmbedBatchPayload) (string, error) {
	task, err := NewEmbedBatchTask(p)
	if err != nil {
		return "", err
	}

	err = d.transport.SetTrace(ctx, &transport.JobTrace{
		ID:     p.JobID,
		Status: transport.TraceStatusQueued,
		Total:  len(p.Items),
		Scope:  p.Scope,
		User:   p.User,
	})
	if err != nil {
		return "", fmt.Errorf("failed to set trace: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	slog.Info("enqueued embedding batch", "job", info.ID, "items", len(p.Items), "queue", info.Queue)
	return p.JobID, nil
}

// Runner runs an embedding batch.
type Runner interface {
	Run(ctx context.Context, items []embedding.Item, onProgress embedding.ProgressFunc) *embedding.Report
}

type EmbedBatchHandler struct {
	transport transport.Transport
	runner    Runner
}

func NewEmbedBatchHandler(transport transport.Transport, runner Runner) *EmbedBatchHandler {
	return &EmbedBatchHandler{
		transport: transport,
		runner:    runner,
	}
}

func (h *EmbedBatchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeEmbedBatch {
		return fmt.Errorf("unrecognized task type (%w)", asynq.SkipRetry)
	}

	var p EmbedBatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid payload: %v (%w)", err, asynq.SkipRetry)
	}
	id := p.JobID
	slog.Info("received embedding batch", "job", id, "items", len(p.Items), "user", p.User)

	ms, err := h.transport.GetProgressStream(id)
	if err != nil {
		slog.Error("failed to initialize progress stream", "err", err)
		return fmt.Errorf("failed to initialize progress stream: %v (%w)", err, asynq.SkipRetry)
	}

	trace := &transport.JobTrace{
		ID:        id,
		Status:    transport.TraceStatusRunning,
		Total:     len(p.Items),
		StartedAt: time.Now().UnixNano(),
		Scope:     p.Scope,
		User:      p.User,
	}
	h.setTrace(ctx, trace)

	eventID := 0
	report := h.runner.Run(ctx, p.embeddingItems(), func(percent float64) {
		trace.Progress = percent
		h.setTrace(ctx, trace)

		err := ms.Send(ctx, transport.ProgressEvent{
			ID:      eventID,
			Status:  transport.TraceStatusRunning,
			Percent: percent,
		})
		if err != nil {
			slog.Debug("failed sending progress event", "job", id, "err", err)
		}
		eventID++
	})

	trace.Succeeded = len(report.Succeeded)
	trace.Failed = len(report.Failed)
	trace.Progress = 100
	trace.CompletedAt = time.Now().UnixNano()
	trace.Status = transport.TraceStatusCompleted

	final := transport.ProgressEvent{
		ID:      eventID,
		Status:  transport.TraceStatusCompleted,
		Percent: 100,
	}
	if len(p.Items) > 0 && len(report.Succeeded) == 0 {
		trace.Status = transport.TraceStatusFailed
		trace.Error = report.Failed[0].Err.Error()
		final.Status = transport.TraceStatusFailed
		final.Message = trace.Error
	}

	h.setTrace(ctx, trace)
	if err := ms.Send(ctx, final); err != nil {
		slog.Warn("failed to write final event to stream", "job", id)
	}

	for _, f := range report.Failed {
		slog.Warn("failed to embed item", "job", id, "item", f.ID, "err", f.Err)
	}
	return nil
}

func (h *EmbedBatchHandler) setTrace(ctx context.Context, trace *transport.JobTrace) {
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", trace.ID, "err", err)
	}
}
