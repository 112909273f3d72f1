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

package worker_test

import (
	"context"
	"testing"

	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/worker"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxRoutesEmbedBatch(t *testing.T) {
	var handled []string
	h := asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		handled = append(handled, task.Type())
		return nil
	})

	w := worker.New(nil, 0, h)
	mux := w.Mux()

	task, err := tasks.NewEmbedBatchTask(&tasks.EmbedBatchPayload{Scope: "p1"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{tasks.TypeEmbedBatch}, handled)

	err = mux.ProcessTask(context.Background(), asynq.NewTask("cognote:unknown", nil))
	assert.Error(t, err)
	assert.Len(t, handled, 1)
}
