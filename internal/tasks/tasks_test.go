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

package tasks_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/embedding"
	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alan-mat/cognote/internal/vector"
	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) EmbedDocuments(_ context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	return []*api.DocumentEmbedding{{Values: [][]float32{{1, 0}}}}, nil
}

func (fakeEmbedder) GetDimensions() uint { return 2 }

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task", Queue: "default"}, nil
}

func newTransport(t *testing.T) *transport.RedisTransport {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return transport.NewRedisTransport(rdb)
}

func body(s string) *string { return &s }

func TestDispatcherEnqueue(t *testing.T) {
	tr := newTransport(t)
	client := &fakeEnqueuer{}
	d := tasks.NewDispatcher(client, tr)

	jobID, err := d.EnqueueEmbedBatch(context.Background(), &tasks.EmbedBatchPayload{
		Scope: "p1",
		Items: []tasks.EmbedItem{{ID: "n1", Title: "One", Body: body("first")}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Len(t, client.tasks, 1)
	assert.Equal(t, tasks.TypeEmbedBatch, client.tasks[0].Type())

	var p tasks.EmbedBatchPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &p))
	assert.Equal(t, jobID, p.JobID)

	trace, err := tr.GetTrace(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusQueued, trace.Status)
	assert.Equal(t, 1, trace.Total)
}

func TestEmbedBatchHandler(t *testing.T) {
	tr := newTransport(t)
	store := vector.NewMemoryStore()
	proc := embedding.NewProcessor(fakeEmbedder{}, store, embedding.WithBatchSize(2))
	h := tasks.NewEmbedBatchHandler(tr, proc)

	task, err := tasks.NewEmbedBatchTask(&tasks.EmbedBatchPayload{
		JobID: "job-1",
		Scope: "p1",
		Items: []tasks.EmbedItem{
			{ID: "n1", Title: "One", Body: body("first")},
			{ID: "n2", Title: "Two", Body: body("second")},
			{ID: "n3", Title: "Three", Body: nil},
		},
	})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	assert.Equal(t, 2, store.Len())

	trace, err := tr.GetTrace(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusCompleted, trace.Status)
	assert.Equal(t, 100.0, trace.Progress)
	assert.Equal(t, 2, trace.Succeeded)
	assert.Equal(t, 1, trace.Failed)
	assert.NotZero(t, trace.CompletedAt)

	ms, err := tr.GetProgressStream("job-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var percents []float64
	last, err := transport.Follow(ctx, ms, func(ev transport.ProgressEvent) {
		percents = append(percents, ev.Percent)
	})
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusCompleted, last.Status)
	assert.InDelta(t, 200.0/3, percents[0], 1e-9)
	assert.Equal(t, 100.0, percents[len(percents)-1])
}

func TestEmbedBatchHandlerAllFailed(t *testing.T) {
	tr := newTransport(t)
	proc := embedding.NewProcessor(fakeEmbedder{}, vector.NewMemoryStore())
	h := tasks.NewEmbedBatchHandler(tr, proc)

	task, err := tasks.NewEmbedBatchTask(&tasks.EmbedBatchPayload{
		JobID: "job-2",
		Items: []tasks.EmbedItem{{ID: "n1", Body: body("   ")}},
	})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	trace, err := tr.GetTrace(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusFailed, trace.Status)
	assert.Contains(t, trace.Error, "empty input")
}

func TestEmbedBatchHandlerInvalidPayload(t *testing.T) {
	h := tasks.NewEmbedBatchHandler(newTransport(t), embedding.NewProcessor(fakeEmbedder{}, vector.NewMemoryStore()))

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeEmbedBatch, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask("cognote:other", nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
