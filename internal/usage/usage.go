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

// Package usage accounts provider calls per subject and refuses
// calls once a subject's quota is exhausted.
package usage

import (
	"context"
	"time"

	"github.com/alan-mat/cognote/internal/api"
)

// AnonymousSubject is used when the context carries no subject.
const AnonymousSubject = "anonymous"

// Usage describes a single provider call about to be made.
type Usage struct {
	Subject  string
	Provider api.Provider
	Task     api.Task
}

// Stats is the usage of a subject in the current window.
type Stats struct {
	Subject     string           `json:"subject"`
	WindowStart time.Time        `json:"windowStart"`
	WindowEnd   time.Time        `json:"windowEnd"`
	Used        int64            `json:"used"`
	Limit       int64            `json:"limit"`
	ByProvider  map[string]int64 `json:"byProvider"`
	ByTask      map[string]int64 `json:"byTask"`
}

// Remaining returns the calls left in the window, or -1 when unlimited.
func (s Stats) Remaining() int64 {
	if s.Limit <= 0 {
		return -1
	}
	return max(s.Limit-s.Used, 0)
}

// Ledger is consulted before every provider call. Reserve returns an
// error wrapping [api.ErrQuotaExceeded] when the call must not be made.
type Ledger interface {
	Reserve(ctx context.Context, u Usage) error
	Stats(ctx context.Context, subject string) (*Stats, error)
}

type subjectKey struct{}

// WithSubject returns a context carrying the subject whose
// usage is accounted.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the subject on the context, or [AnonymousSubject].
func SubjectFrom(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok && s != "" {
		return s
	}
	return AnonymousSubject
}

// NopLedger accepts every call and reports no usage.
type NopLedger struct{}

func (NopLedger) Reserve(context.Context, Usage) error {
	return nil
}

func (NopLedger) Stats(_ context.Context, subject string) (*Stats, error) {
	return &Stats{
		Subject:    subject,
		ByProvider: map[string]int64{},
		ByTask:     map[string]int64{},
	}, nil
}
