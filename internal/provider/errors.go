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
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
)

var ErrNoAdapter = errors.New("no adapter registered for provider")

// StatusError carries the HTTP status of a failed vendor call.
// Adapters wrap SDK errors exposing a status into it.
type StatusError struct {
	Code    int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("(HTTP Error %d) %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

var (
	rateLimitPatterns = []string{
		"rate limit", "rate_limit", "ratelimit", "too many requests",
		"quota exceeded", "insufficient_quota", "throttl",
	}
	authPatterns = []string{
		"unauthorized", "invalid api key", "invalid_api_key", "invalid x-api-key",
		"authentication", "permission denied", "forbidden",
	}
	timeoutPatterns = []string{
		"timeout", "timed out", "deadline exceeded",
	}
	statusInMessage = regexp.MustCompile(`(?:status code:?|http error|http) ?(\d{3})\b`)
)

// Classify maps an error returned by an adapter to a [api.ProviderError].
// Errors already classified are returned as is.
func Classify(p api.Provider, err error) *api.ProviderError {
	if err == nil {
		return nil
	}
	if perr, ok := api.AsProviderError(err); ok {
		return perr
	}

	newErr := func(kind api.ProviderErrorKind) *api.ProviderError {
		return &api.ProviderError{Kind: kind, Provider: p, Message: err.Error(), Err: err}
	}

	if errors.Is(err, api.ErrMalformedResponse) {
		return newErr(api.KindMalformedResponse)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newErr(api.KindTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newErr(api.KindTimeout)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return newErr(kindFromStatus(statusErr.Code))
	}

	msg := strings.ToLower(err.Error())
	if m := statusInMessage.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		if kind := kindFromStatus(code); kind != api.KindNetwork {
			return newErr(kind)
		}
	}

	switch {
	case containsAny(msg, rateLimitPatterns):
		return newErr(api.KindRateLimit)
	case containsAny(msg, authPatterns):
		return newErr(api.KindAuth)
	case containsAny(msg, timeoutPatterns):
		return newErr(api.KindTimeout)
	default:
		return newErr(api.KindNetwork)
	}
}

func kindFromStatus(code int) api.ProviderErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return api.KindAuth
	case http.StatusTooManyRequests:
		return api.KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return api.KindTimeout
	default:
		return api.KindNetwork
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
