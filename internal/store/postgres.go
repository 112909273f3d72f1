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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores artifacts in three tables with one
// unique identity each.
type PostgresRepository struct {
	db    DB
	close func()
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db, close: func() {}}
}

func NewPostgresRepositoryFromDSN(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, persistenceError("connect", err)
	}
	r := NewPostgresRepository(pool)
	r.close = pool.Close
	return r, nil
}

func (r *PostgresRepository) Close() {
	r.close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS note_summaries (
		note_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL DEFAULT '',
		summary JSONB,
		provider TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS image_summaries (
		image_url TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (image_url, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS note_metadata (
		note_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL DEFAULT '',
		title TEXT,
		tags TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the artifact tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return persistenceError("migrate", err)
		}
	}
	return nil
}

const upsertNoteSummary = `
	INSERT INTO note_summaries (note_id, project_id, summary, provider, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (note_id) DO UPDATE SET
		project_id = EXCLUDED.project_id,
		summary = EXCLUDED.summary,
		provider = EXCLUDED.provider,
		updated_at = EXCLUDED.updated_at`

func (r *PostgresRepository) UpsertNoteSummary(ctx context.Context, s NoteSummary) error {
	if s.NoteID == "" {
		return persistenceError("upsert note summary", errors.New("missing note id"))
	}

	var body []byte
	if s.Summary != nil {
		var err error
		body, err = json.Marshal(s.Summary)
		if err != nil {
			return persistenceError("upsert note summary", err)
		}
	}

	_, err := r.db.Exec(ctx, upsertNoteSummary, s.NoteID, s.ProjectID, body, providerName(s.Provider))
	if err != nil {
		return persistenceError("upsert note summary", err)
	}
	return nil
}

func (r *PostgresRepository) NoteSummary(ctx context.Context, noteID string) (*NoteSummary, error) {
	var (
		s        NoteSummary
		body     []byte
		provider string
	)
	err := r.db.QueryRow(ctx,
		`SELECT note_id, project_id, summary, provider, updated_at FROM note_summaries WHERE note_id = $1`,
		noteID,
	).Scan(&s.NoteID, &s.ProjectID, &body, &provider, &s.UpdatedAt)
	if err != nil {
		return nil, readError("read note summary", err)
	}

	if len(body) > 0 {
		s.Summary = &api.StructuredSummary{}
		if err := json.Unmarshal(body, s.Summary); err != nil {
			return nil, persistenceError("read note summary", fmt.Errorf("invalid summary column: %w", err))
		}
	}
	s.Provider = parseProvider(provider)
	return &s, nil
}

const upsertImageSummary = `
	INSERT INTO image_summaries (image_url, project_id, description, provider, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (image_url, project_id) DO UPDATE SET
		description = EXCLUDED.description,
		provider = EXCLUDED.provider,
		updated_at = EXCLUDED.updated_at`

func (r *PostgresRepository) UpsertImageSummary(ctx context.Context, s ImageSummary) error {
	if s.ImageURL == "" {
		return persistenceError("upsert image summary", errors.New("missing image url"))
	}

	_, err := r.db.Exec(ctx, upsertImageSummary, s.ImageURL, s.ProjectID, s.Description, providerName(s.Provider))
	if err != nil {
		return persistenceError("upsert image summary", err)
	}
	return nil
}

func (r *PostgresRepository) ImageSummary(ctx context.Context, imageURL, projectID string) (*ImageSummary, error) {
	var (
		s        ImageSummary
		provider string
	)
	err := r.db.QueryRow(ctx,
		`SELECT image_url, project_id, description, provider, updated_at FROM image_summaries WHERE image_url = $1 AND project_id = $2`,
		imageURL, projectID,
	).Scan(&s.ImageURL, &s.ProjectID, &s.Description, &provider, &s.UpdatedAt)
	if err != nil {
		return nil, readError("read image summary", err)
	}
	s.Provider = parseProvider(provider)
	return &s, nil
}

const upsertNoteMetadata = `
	INSERT INTO note_metadata (note_id, project_id, title, tags, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (note_id) DO UPDATE SET
		project_id = EXCLUDED.project_id,
		title = COALESCE(EXCLUDED.title, note_metadata.title),
		tags = CASE WHEN cardinality(EXCLUDED.tags) > 0 THEN EXCLUDED.tags ELSE note_metadata.tags END,
		updated_at = EXCLUDED.updated_at`

// UpsertNoteMetadata keeps a stored field when the new row leaves
// it empty, so a TITLE run does not erase earlier tags.
func (r *PostgresRepository) UpsertNoteMetadata(ctx context.Context, m NoteMetadata) error {
	if m.NoteID == "" {
		return persistenceError("upsert note metadata", errors.New("missing note id"))
	}

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.Exec(ctx, upsertNoteMetadata, m.NoteID, m.ProjectID, m.Title, tags)
	if err != nil {
		return persistenceError("upsert note metadata", err)
	}
	return nil
}

func (r *PostgresRepository) NoteMetadata(ctx context.Context, noteID string) (*NoteMetadata, error) {
	var m NoteMetadata
	err := r.db.QueryRow(ctx,
		`SELECT note_id, project_id, title, tags, updated_at FROM note_metadata WHERE note_id = $1`,
		noteID,
	).Scan(&m.NoteID, &m.ProjectID, &m.Title, &m.Tags, &m.UpdatedAt)
	if err != nil {
		return nil, readError("read note metadata", err)
	}
	return &m, nil
}

func readError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return persistenceError(op, err)
}

func providerName(p api.Provider) string {
	if p == api.ProviderUnspecified {
		return ""
	}
	return p.String()
}

func parseProvider(s string) api.Provider {
	if s == "" {
		return api.ProviderUnspecified
	}
	p, err := api.ParseProvider(s)
	if err != nil {
		return api.ProviderUnspecified
	}
	return p
}
