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

package transport

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	TraceExpiry = time.Hour * 24

	ErrTraceNotFound   = errors.New("trace not found")
	ErrInvalidStreamID = errors.New("invalid stream ID")
)

// Transport records batch job traces and publishes their progress.
type Transport interface {
	GetProgressStream(id string) (ProgressStream, error)
	SetTrace(ctx context.Context, trace *JobTrace) error
	GetTrace(ctx context.Context, traceId string) (*JobTrace, error)
}

type ProgressStream interface {
	Send(ctx context.Context, event ProgressEvent) error

	// Recv blocks until the next event is available.
	Recv(ctx context.Context) (*ProgressEvent, error)

	GetID() string
}

type ProgressEvent struct {
	ID      int         `json:"id"`
	Status  TraceStatus `json:"status"`
	Percent float64     `json:"percent"`

	// Message carries the failure reason of a failed job.
	Message string `json:"message,omitempty"`
}

// Final reports whether no further events follow.
func (e ProgressEvent) Final() bool {
	return e.Status == TraceStatusCompleted || e.Status == TraceStatusFailed
}

type JobTrace struct {
	ID          string      `redis:"id" json:"id"`
	Status      TraceStatus `redis:"status" json:"status"`
	Progress    float64     `redis:"progress" json:"progress"`
	Total       int         `redis:"total" json:"total"`
	Succeeded   int         `redis:"succeeded" json:"succeeded"`
	Failed      int         `redis:"failed" json:"failed"`
	StartedAt   int64       `redis:"started_at" json:"startedAt"`
	CompletedAt int64       `redis:"completed_at" json:"completedAt"`
	Scope       string      `redis:"scope" json:"projectId"`
	User        string      `redis:"user" json:"user"`
	Error       string      `redis:"error" json:"error,omitempty"`
}

type TraceStatus int

const (
	TraceStatusUnspecified TraceStatus = iota
	TraceStatusQueued
	TraceStatusRunning
	TraceStatusCompleted
	TraceStatusFailed
)

func (s TraceStatus) String() string {
	switch s {
	case TraceStatusQueued:
		return "queued"
	case TraceStatusRunning:
		return "running"
	case TraceStatusCompleted:
		return "completed"
	case TraceStatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// MarshalBinary stores the status name in redis hashes, matching what
// UnmarshalText reads back during hash scans.
func (s TraceStatus) MarshalBinary() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s TraceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts a status name or its numeric value.
func (s *TraceStatus) UnmarshalText(b []byte) error {
	if n, err := strconv.Atoi(string(b)); err == nil {
		if n < int(TraceStatusUnspecified) || n > int(TraceStatusFailed) {
			n = int(TraceStatusUnspecified)
		}
		*s = TraceStatus(n)
		return nil
	}
	for _, candidate := range []TraceStatus{
		TraceStatusQueued,
		TraceStatusRunning,
		TraceStatusCompleted,
		TraceStatusFailed,
	} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	*s = TraceStatusUnspecified
	return nil
}

// Follow reads events from ms until a final one arrives, calling fn
// for each of them.
func Follow(ctx context.Context, ms ProgressStream, fn func(ProgressEvent)) (*ProgressEvent, error) {
	for {
		ev, err := ms.Recv(ctx)
		if err != nil {
			return nil, err
		}
		fn(*ev)
		if ev.Final() {
			return ev, nil
		}
	}
}
