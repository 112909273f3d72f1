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

	"github.com/alan-mat/cognote/internal/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of a pgx pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgvectorStore keeps one row per content id in a Postgres table
// with a vector column.
type PgvectorStore struct {
	db    DB
	name  string
	table string
	close func()
}

func NewPgvectorStore(db DB, table string) *PgvectorStore {
	if table == "" {
		table = DefaultCollection
	}
	return &PgvectorStore{
		db:    db,
		name:  table,
		table: pgx.Identifier{table}.Sanitize(),
		close: func() {},
	}
}

func NewPgvectorStoreFromDSN(ctx context.Context, dsn, table string) (*PgvectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewPgvectorStore(pool, table)
	s.close = pool.Close
	return s, nil
}

func (s *PgvectorStore) EnsureCollection(ctx context.Context, dims uint) error {
	if dims == 0 {
		return fmt.Errorf("vector dimensions must be positive")
	}

	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			note_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, dims)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		pgx.Identifier{s.name + "_embedding_idx"}.Sanitize(), s.table)
	if _, err := s.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (s *PgvectorStore) Upsert(ctx context.Context, embeddings ...api.Embedding) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (note_id, project_id, title, content, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5::vector, now())
		ON CONFLICT (note_id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`,
		s.table)

	for _, e := range embeddings {
		if e.IsEmpty() {
			return fmt.Errorf("embedding for '%s' has no vector", e.ContentID)
		}

		_, err := s.db.Exec(ctx, stmt,
			e.ContentID,
			e.Scope,
			e.Title,
			e.Content,
			pgvector.NewVector(e.Vector),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert embedding '%s': %w", e.ContentID, err)
		}
	}
	return nil
}

func (s *PgvectorStore) Delete(ctx context.Context, contentIDs ...string) error {
	if len(contentIDs) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE note_id = ANY($1)", s.table)
	if _, err := s.db.Exec(ctx, stmt, contentIDs); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	limit := int64(params.limit)
	if limit <= 0 {
		limit = -1
	}

	var (
		query string
		args  []any
	)
	if params.sourceID != "" {
		query = fmt.Sprintf(`
			WITH source AS (
				SELECT embedding FROM %[1]s WHERE note_id = $1
			)
			SELECT n.note_id, n.project_id, n.title, n.content,
				1 - (n.embedding <=> source.embedding) AS similarity
			FROM %[1]s n, source
			WHERE n.note_id <> $1 AND ($2 = '' OR n.project_id = $2)
			ORDER BY n.embedding <=> source.embedding
			LIMIT NULLIF($3, -1)`,
			s.table)
		args = []any{params.sourceID, params.scope, limit}
	} else {
		query = fmt.Sprintf(`
			SELECT note_id, project_id, title, content,
				1 - (embedding <=> $1::vector) AS similarity
			FROM %s
			WHERE ($2 = '' OR project_id = $2)
			ORDER BY embedding <=> $1::vector
			LIMIT NULLIF($3, -1)`,
			s.table)
		args = []any{pgvector.NewVector(params.vector), params.scope, limit}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	points := make([]*ScoredPoint, 0)
	for rows.Next() {
		var (
			id, scope, title, content string
			score                     float64
		)
		if err := rows.Scan(&id, &scope, &title, &content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}

		payload := map[string]string{
			PayloadContentID: id,
			PayloadScope:     scope,
			PayloadTitle:     title,
			PayloadContent:   content,
		}
		if !matchesFilters(payload, params.filters) {
			continue
		}
		if !params.withPayload {
			payload = nil
		}

		points = append(points, &ScoredPoint{
			ContentID: id,
			Score:     score,
			Payload:   payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read embedding rows: %w", err)
	}

	return points, nil
}

func (s *PgvectorStore) Close() error {
	s.close()
	return nil
}

func matchesFilters(payload map[string]string, filters []*QueryMatch) bool {
	for _, f := range filters {
		if payload[f.Key] != f.Value {
			return false
		}
	}
	return true
}
