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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alan-mat/cognote/internal/http"
)

const Path = "/v1/functions/ai"

// RemoteError is a failed call of a remote function boundary.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote function failed with status %d: %s", e.Status, e.Message)
}

// RemoteClient invokes the function boundary of a running server.
type RemoteClient struct {
	client http.Client
}

func NewRemoteClient(endpoint string, opts ...http.ClientOption) *RemoteClient {
	return &RemoteClient{
		client: http.NewClient(endpoint, opts...),
	}
}

func (c *RemoteClient) Handle(ctx context.Context, req Request) (*Response, error) {
	var resp Response
	err := c.client.Request(ctx, http.MethodPost, Path, req, &resp)
	if err == nil {
		return &resp, nil
	}

	var serr *http.StatusError
	if !errors.As(err, &serr) {
		return nil, err
	}

	var body Response
	if jerr := json.Unmarshal([]byte(serr.Body), &body); jerr != nil || body.Error == "" {
		body.Error = serr.Body
	}
	return nil, &RemoteError{Status: serr.Code, Message: body.Error}
}
