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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"time"

	"github.com/alan-mat/cognote/internal/llm"
)

const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodDelete = "DELETE"
)

// DefaultMaxBodyBytes bounds fetched resources such as images.
const DefaultMaxBodyBytes = 20 << 20

var retryStatusCodes = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned for responses with a status of 400 or above.
// Body is truncated to 512 bytes.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("(HTTP Error %d) %s", e.Code, e.Body)
}

// Client is a small JSON client. It sends every request once unless
// WithMaxRetries raises the attempt count.
type Client struct {
	httpClient   *gohttp.Client
	maxRetries   int
	maxBodyBytes int64

	endpoint string
	apiKey   string
}

type ClientOption func(*Client)

func NewClient(endpoint string, opts ...ClientOption) Client {
	c := Client{
		endpoint:     endpoint,
		maxRetries:   1,
		maxBodyBytes: DefaultMaxBodyBytes,
		httpClient: &gohttp.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

func WithApiKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
	}
}

func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *Client) {
		c.maxBodyBytes = n
	}
}

func WithHTTPClient(hc *gohttp.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Request sends payload as JSON to path and decodes the response
// into out. A nil out discards the body.
func (c *Client) Request(ctx context.Context, method string, path string, payload any, out any) error {
	resp, err := c.do(ctx, method, c.resolve(path), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Fetch downloads rawURL as a blob, e.g. an image to describe.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*llm.Blob, error) {
	resp, err := c.do(ctx, MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBodyBytes)
	}

	return llm.NewBlob(resp.Header.Get("Content-Type"), data), nil
}

func (c *Client) resolve(path string) string {
	uri, err := url.Parse(c.endpoint)
	if err != nil || c.endpoint == "" {
		return path
	}
	uri.Path = path
	return uri.String()
}

func (c *Client) do(ctx context.Context, method string, target string, payload any) (*gohttp.Response, error) {
	var jsonData []byte
	if payload != nil {
		var err error
		jsonData, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var (
		resp *gohttp.Response
		err  error
	)
	for i := range c.maxRetries {
		var body io.Reader
		if jsonData != nil {
			body = bytes.NewReader(jsonData)
		}

		req, rerr := gohttp.NewRequestWithContext(ctx, method, target, body)
		if rerr != nil {
			return nil, rerr
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if jsonData != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if i == c.maxRetries-1 {
				return nil, err
			}
			continue
		}

		if retryStatusCodes[resp.StatusCode] && i < c.maxRetries-1 {
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
			continue
		}
		break
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBytes)}
	}

	return resp, nil
}
