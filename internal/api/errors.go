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

package api

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("empty input")
	ErrMalformedResponse = errors.New("malformed response")
	ErrPersistence       = errors.New("persistence error")
	ErrQuotaExceeded     = errors.New("api usage quota exceeded")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrUnknownTask       = errors.New("unknown task")
)

// ProviderErrorKind classifies a failed provider call.
type ProviderErrorKind string

const (
	KindAuth              ProviderErrorKind = "AUTH"
	KindRateLimit         ProviderErrorKind = "RATE_LIMIT"
	KindTimeout           ProviderErrorKind = "TIMEOUT"
	KindMalformedResponse ProviderErrorKind = "MALFORMED_RESPONSE"
	KindNetwork           ProviderErrorKind = "NETWORK"
)

// ProviderError is returned by the provider router. Message keeps
// the vendor specific detail.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider Provider
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	var what string
	switch e.Kind {
	case KindAuth:
		what = "authentication failed"
	case KindRateLimit:
		what = "rate limited by provider, retry later"
	case KindTimeout:
		what = "provider request timed out, retry later"
	case KindMalformedResponse:
		what = "provider returned a malformed response"
	default:
		what = "provider request failed"
	}

	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Provider, what)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, what, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes a MALFORMED_RESPONSE provider error match [ErrMalformedResponse].
func (e *ProviderError) Is(target error) bool {
	return target == ErrMalformedResponse && e.Kind == KindMalformedResponse
}

// Retryable reports whether the caller may reasonably retry
// the request later. The core itself never retries.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTimeout
}

// AsProviderError is a shorthand for errors.As on a [ProviderError].
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// PersistenceError wraps a failure of the storage collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
