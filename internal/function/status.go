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

package function

import (
	"context"
	"errors"
	"net/http"

	"github.com/alan-mat/cognote/internal/api"
)

// StatusCode maps a Handle error onto the HTTP status of the
// function boundary.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if perr, ok := api.AsProviderError(err); ok {
		switch perr.Kind {
		case api.KindRateLimit:
			return http.StatusTooManyRequests
		case api.KindTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, api.ErrEmptyInput),
		errors.Is(err, api.ErrUnknownProvider),
		errors.Is(err, api.ErrUnknownTask),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, api.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse renders err in the response shape.
func ErrorResponse(err error) *Response {
	return &Response{Error: err.Error()}
}
