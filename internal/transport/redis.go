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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cognote:job:"

type RedisTransport struct {
	rdb redis.UniversalClient
}

func NewRedisTransport(rdb redis.UniversalClient) *RedisTransport {
	return &RedisTransport{
		rdb: rdb,
	}
}

func (t *RedisTransport) GetProgressStream(id string) (ProgressStream, error) {
	if len(id) == 0 {
		return nil, ErrInvalidStreamID
	}
	rs := &RedisStream{
		id:          id,
		key:         keyPrefix + id + ":events",
		lastRedisID: "0",
		rdb:         t.rdb,
	}
	return rs, nil
}

func (t *RedisTransport) SetTrace(ctx context.Context, trace *JobTrace) error {
	if trace == nil || trace.ID == "" {
		return fmt.Errorf("trace without id")
	}

	key := keyPrefix + trace.ID
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, trace)
		pipe.Expire(ctx, key, TraceExpiry)
		return nil
	})
	return err
}

func (t *RedisTransport) GetTrace(ctx context.Context, traceId string) (*JobTrace, error) {
	res := t.rdb.HGetAll(ctx, keyPrefix+traceId)
	values, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrTraceNotFound, traceId)
	}

	var trace JobTrace
	if err := res.Scan(&trace); err != nil {
		return nil, fmt.Errorf("failed to read trace '%s': %w", traceId, err)
	}
	return &trace, nil
}

type RedisStream struct {
	id          string
	key         string
	lastRedisID string

	rdb redis.UniversalClient
}

func (s *RedisStream) Send(ctx context.Context, event ProgressEvent) error {
	payloadJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	res, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		ID:     "*",
		Values: map[string]any{
			"payload": string(payloadJSON),
		},
	}).Result()
	if err != nil {
		return err
	}
	s.rdb.Expire(ctx, s.key, TraceExpiry)

	slog.Debug("sent progress event", "job", s.id, "entry", res, "percent", event.Percent)
	return nil
}

func (s *RedisStream) Recv(ctx context.Context) (*ProgressEvent, error) {
	rstreams, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.key, s.lastRedisID},
		Count:   1,
		Block:   0,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(rstreams) == 0 || len(rstreams[0].Messages) == 0 {
		return nil, errors.New("empty read from progress stream")
	}

	msg := rstreams[0].Messages[0]
	s.lastRedisID = msg.ID
	payloadJSON, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to read payload from stream message")
	}

	var event ProgressEvent
	if err := json.Unmarshal([]byte(payloadJSON), &event); err != nil {
		return nil, fmt.Errorf("failed to deserialize stream message payload: %w", err)
	}
	return &event, nil
}

func (s *RedisStream) GetID() string {
	return s.id
}
