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

package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/google/uuid"
)

var (
	ErrInvalidStoreType      = errors.New("no vector store found for given type")
	ErrFailedStoreInitialize = errors.New("failed to initialise vector store")
	ErrInvalidQuery          = errors.New("query needs exactly one of vector or source id")
)

type StoreType string

const (
	StoreTypeQdrant   StoreType = "qdrant"
	StoreTypePgvector StoreType = "pgvector"
	StoreTypeMemory   StoreType = "memory"
)

// Store persists content embeddings and answers nearest neighbour
// queries. Upserts are keyed by content id.
type Store interface {
	EnsureCollection(ctx context.Context, dims uint) error

	Upsert(ctx context.Context, embeddings ...api.Embedding) error
	Delete(ctx context.Context, contentIDs ...string) error

	// Query returns points ordered by descending score. Scores are
	// cosine similarities in [-1, 1] and are not clamped to [0, 1].
	Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error)

	Close() error
}

type StoreConfig struct {
	Type       StoreType
	Collection string
	Dimensions uint

	// qdrant
	Host   string
	Port   int
	APIKey string

	// pgvector
	DSN string
}

// NewStore connects to the configured store and makes sure its
// collection exists.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	var (
		store Store
		err   error
	)

	switch StoreType(strings.ToLower(string(cfg.Type))) {
	case StoreTypeQdrant:
		store, err = NewQdrantStore(cfg.Host, cfg.Port, cfg.Collection, cfg.APIKey)
	case StoreTypePgvector:
		store, err = NewPgvectorStoreFromDSN(ctx, cfg.DSN, cfg.Collection)
	case StoreTypeMemory, "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidStoreType, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
	}

	if err := store.EnsureCollection(ctx, cfg.Dimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
	}
	return store, nil
}

// Payload keys stored alongside every vector.
const (
	PayloadContentID = "content_id"
	PayloadScope     = "project_id"
	PayloadTitle     = "title"
	PayloadContent   = "content"
)

// ScoredPoint is a single hit of a store query.
type ScoredPoint struct {
	ContentID string
	Score     float64
	Payload   map[string]string
}

// PointID derives a stable point UUID from a content id, so repeated
// upserts of the same content overwrite one point.
func PointID(contentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(contentID)).String()
}

type QueryMatch struct {
	Key   string
	Value string
}

type QueryParams struct {
	vector      []float32
	sourceID    string
	scope       string
	withPayload bool
	limit       uint
	filters     []*QueryMatch
}

type QueryParamsOption func(*QueryParams)

// NewQueryParams queries the neighbours of a vector.
func NewQueryParams(query []float32, opts ...QueryParamsOption) *QueryParams {
	qp := &QueryParams{
		vector:      query,
		withPayload: true,
		filters:     make([]*QueryMatch, 0),
	}
	for _, opt := range opts {
		opt(qp)
	}
	return qp
}

// NewSourceQueryParams queries the neighbours of stored content.
// The source itself may be part of the result.
func NewSourceQueryParams(sourceID string, opts ...QueryParamsOption) *QueryParams {
	qp := NewQueryParams(nil, opts...)
	qp.sourceID = sourceID
	return qp
}

func (qp *QueryParams) Validate() error {
	if (len(qp.vector) == 0) == (qp.sourceID == "") {
		return ErrInvalidQuery
	}
	return nil
}

func (qp *QueryParams) Vector() []float32 { return qp.vector }
func (qp *QueryParams) SourceID() string  { return qp.sourceID }
func (qp *QueryParams) Scope() string     { return qp.scope }
func (qp *QueryParams) Limit() uint       { return qp.limit }

func WithPayload(w bool) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.withPayload = w
	}
}

func WithLimit(limit uint) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.limit = limit
	}
}

// WithScope restricts the query to a single project.
func WithScope(scope string) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.scope = scope
	}
}

func WithFilter(filter *QueryMatch) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.filters = append(qp.filters, filter)
	}
}
