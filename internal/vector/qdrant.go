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
	"fmt"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultCollection = "note_embeddings"

type QdrantStore struct {
	client     *qdrant.Client
	collection string
	waitUpsert bool
}

func NewQdrantStore(host string, port int, collection, apiKey string) (*QdrantStore, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	if collection == "" {
		collection = DefaultCollection
	}

	s := &QdrantStore{
		client:     c,
		collection: collection,
		waitUpsert: true,
	}
	return s, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dims uint) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *QdrantStore) Upsert(ctx context.Context, embeddings ...api.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(embeddings))
	for _, e := range embeddings {
		if e.IsEmpty() {
			return fmt.Errorf("embedding for '%s' has no vector", e.ContentID)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(e.ContentID)),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				PayloadContentID: e.ContentID,
				PayloadScope:     e.Scope,
				PayloadTitle:     e.Title,
				PayloadContent:   e.Content,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &s.waitUpsert,
		Points:         points,
	})
	return err
}

func (s *QdrantStore) Delete(ctx context.Context, contentIDs ...string) error {
	if len(contentIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, 0, len(contentIDs))
	for _, id := range contentIDs {
		ids = append(ids, qdrant.NewIDUUID(PointID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &s.waitUpsert,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	return err
}

func (s *QdrantStore) Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: s.collection,
		WithPayload:    qdrant.NewWithPayload(params.withPayload),
	}

	if params.sourceID != "" {
		queryPoints.Query = qdrant.NewQueryID(qdrant.NewIDUUID(PointID(params.sourceID)))
	} else {
		queryPoints.Query = qdrant.NewQuery(params.vector...)
	}

	if params.limit > 0 {
		limit := uint64(params.limit)
		queryPoints.Limit = &limit
	}

	conds := make([]*qdrant.Condition, 0, len(params.filters)+1)
	if params.scope != "" {
		conds = append(conds, qdrant.NewMatch(PayloadScope, params.scope))
	}
	for _, filter := range params.filters {
		conds = append(conds, qdrant.NewMatch(filter.Key, filter.Value))
	}
	if len(conds) > 0 {
		queryPoints.Filter = &qdrant.Filter{
			Must: conds,
		}
	}

	res, err := s.client.Query(ctx, queryPoints)
	if err != nil {
		if params.sourceID != "" && isPointNotFound(err) {
			return []*ScoredPoint{}, nil
		}
		return nil, err
	}

	scoredPoints := make([]*ScoredPoint, 0, len(res))
	for _, sp := range res {
		payload := make(map[string]string)
		for k, v := range sp.Payload {
			if textValue := v.GetStringValue(); textValue != "" {
				payload[k] = textValue
			}
		}

		scoredPoints = append(scoredPoints, &ScoredPoint{
			ContentID: payload[PayloadContentID],
			Score:     float64(sp.Score),
			Payload:   payload,
		})
	}

	return scoredPoints, nil
}

// isPointNotFound reports whether err is qdrant rejecting a query by
// an id it does not hold. Older servers answer with InvalidArgument.
func isPointNotFound(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.NotFound:
		return true
	case codes.InvalidArgument:
		return strings.Contains(st.Message(), "No point with id")
	default:
		return false
	}
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
