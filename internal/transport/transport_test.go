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

package transport_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport(t *testing.T) (*transport.RedisTransport, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return transport.NewRedisTransport(rdb), mr
}

func TestTraceRoundTrip(t *testing.T) {
	tr, mr := newTransport(t)
	ctx := context.Background()

	trace := &transport.JobTrace{
		ID:        "job-1",
		Status:    transport.TraceStatusRunning,
		Progress:  40,
		Total:     10,
		Succeeded: 3,
		Failed:    1,
		StartedAt: time.Now().UnixNano(),
		Scope:     "p1",
		User:      "u1",
	}
	require.NoError(t, tr.SetTrace(ctx, trace))

	got, err := tr.GetTrace(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, trace, got)

	assert.Greater(t, mr.TTL("cognote:job:job-1"), time.Duration(0))
}

func TestTraceOverwrite(t *testing.T) {
	tr, _ := newTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.SetTrace(ctx, &transport.JobTrace{ID: "job-1", Status: transport.TraceStatusRunning}))
	require.NoError(t, tr.SetTrace(ctx, &transport.JobTrace{ID: "job-1", Status: transport.TraceStatusCompleted, Progress: 100}))

	got, err := tr.GetTrace(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
}

func TestTraceNotFound(t *testing.T) {
	tr, _ := newTransport(t)

	_, err := tr.GetTrace(context.Background(), "missing")
	assert.ErrorIs(t, err, transport.ErrTraceNotFound)
}

func TestProgressStream(t *testing.T) {
	tr, _ := newTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := tr.GetProgressStream("")
	assert.ErrorIs(t, err, transport.ErrInvalidStreamID)

	sender, err := tr.GetProgressStream("job-1")
	require.NoError(t, err)
	require.NoError(t, sender.Send(ctx, transport.ProgressEvent{ID: 0, Status: transport.TraceStatusRunning, Percent: 50}))
	require.NoError(t, sender.Send(ctx, transport.ProgressEvent{ID: 1, Status: transport.TraceStatusCompleted, Percent: 100}))

	receiver, err := tr.GetProgressStream("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", receiver.GetID())

	var seen []float64
	last, err := transport.Follow(ctx, receiver, func(ev transport.ProgressEvent) {
		seen = append(seen, ev.Percent)
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 100}, seen)
	assert.True(t, last.Final())
}

func TestTraceStatusJSON(t *testing.T) {
	b, err := json.Marshal(transport.JobTrace{ID: "j", Status: transport.TraceStatusFailed})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"failed"`)

	var trace transport.JobTrace
	require.NoError(t, json.Unmarshal(b, &trace))
	assert.Equal(t, transport.TraceStatusFailed, trace.Status)
}

func TestTraceStatusStoredByName(t *testing.T) {
	tr, mr := newTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.SetTrace(ctx, &transport.JobTrace{ID: "job-1", Status: transport.TraceStatusFailed}))
	assert.Equal(t, "failed", mr.HGet("cognote:job:job-1", "status"))

	got, err := tr.GetTrace(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusFailed, got.Status)
}

func TestTraceStatusUnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want transport.TraceStatus
	}{
		{in: "running", want: transport.TraceStatusRunning},
		{in: "completed", want: transport.TraceStatusCompleted},
		{in: "2", want: transport.TraceStatusRunning},
		{in: "4", want: transport.TraceStatusFailed},
		{in: "9", want: transport.TraceStatusUnspecified},
		{in: "bogus", want: transport.TraceStatusUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s transport.TraceStatus
			require.NoError(t, s.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, s)
		})
	}
}
