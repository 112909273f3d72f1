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

// Package function implements the AI function boundary: one request
// shape naming a task and a provider, one response shape carrying
// the task result or an error.
package function

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/guard"
	"github.com/alan-mat/cognote/internal/llm"
	"github.com/alan-mat/cognote/internal/metadata"
	"github.com/alan-mat/cognote/internal/prompt"
	"github.com/alan-mat/cognote/internal/provider"
	"github.com/alan-mat/cognote/internal/store"
	"github.com/alan-mat/cognote/internal/summary"
)

var ErrBadRequest = errors.New("bad request")

// TaskMetadata generates title and tags as selected by Request.Mode.
const TaskMetadata api.Task = "metadata"

type Request struct {
	Task      string `json:"task"`
	Provider  string `json:"provider"`
	Content   string `json:"content"`
	Title     string `json:"title,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	ContentID string `json:"contentId,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Style     string `json:"style,omitempty"`
}

type Response struct {
	Summary   *api.StructuredSummary `json:"summary,omitempty"`
	Embedding []float32              `json:"embedding,omitempty"`
	Title     *string                `json:"title,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	Text      string                 `json:"text,omitempty"`

	TitleError string `json:"titleError,omitempty"`
	TagsError  string `json:"tagsError,omitempty"`

	Error string `json:"error,omitempty"`
}

type Caller interface {
	Call(ctx context.Context, p api.Provider, req api.CompletionRequest) (*api.CompletionResponse, error)
}

// Fetcher downloads images to describe.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*llm.Blob, error)
}

type Upserter interface {
	Upsert(ctx context.Context, embeddings ...api.Embedding) error
}

type Deps struct {
	Caller     Caller
	Prompts    *prompt.Catalog
	Summaries  *summary.Pipeline
	Metadata   *metadata.Generator
	Embedder   provider.Embedder
	Vectors    Upserter
	Repository store.Repository
	Fetcher    Fetcher

	EmbeddingMaxChars int
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	if deps.EmbeddingMaxChars == 0 {
		deps.EmbeddingMaxChars = guard.EmbeddingMaxChars
	}
	return &Handler{deps: deps}
}

// Handle runs the requested task. Generated artifacts are persisted
// when the request identifies their owner.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	task, err := parseTask(req.Task)
	if err != nil {
		return nil, err
	}

	p, err := api.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	slog.Debug("handling function request", "task", task, "provider", p, "contentId", req.ContentID)

	switch task {
	case api.TaskSummary:
		return h.summarize(ctx, req, p)
	case api.TaskTitle, api.TaskTags, api.TaskTitleTags, TaskMetadata:
		return h.metadata(ctx, req, task, p)
	case api.TaskEmbedding:
		return h.embed(ctx, req)
	case api.TaskImageDescription:
		return h.describeImage(ctx, req, p)
	default:
		return h.text(ctx, req, task, p)
	}
}

func parseTask(s string) (api.Task, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(TaskMetadata)) {
		return TaskMetadata, nil
	}
	return api.ParseTask(s)
}

func (h *Handler) unit(req Request) api.ContentUnit {
	return api.NewContentUnit(req.ContentID, req.Title, req.Content)
}

func (h *Handler) summarize(ctx context.Context, req Request, p api.Provider) (*Response, error) {
	s, err := h.deps.Summaries.Summarize(ctx, h.unit(req), p)
	if err != nil {
		return nil, err
	}

	if req.ContentID != "" && h.deps.Repository != nil {
		err := h.deps.Repository.UpsertNoteSummary(ctx, store.NoteSummary{
			NoteID:    req.ContentID,
			ProjectID: req.ProjectID,
			Summary:   s,
			Provider:  p,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Response{Summary: s}, nil
}

func (h *Handler) metadata(ctx context.Context, req Request, task api.Task, p api.Provider) (*Response, error) {
	var mode api.MetadataMode
	switch task {
	case api.TaskTitle:
		mode = api.MetadataTitle
	case api.TaskTags:
		mode = api.MetadataTags
	case api.TaskTitleTags:
		mode = api.MetadataBoth
	default:
		var err error
		mode, err = api.ParseMetadataMode(req.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}

	res, err := h.deps.Metadata.Generate(ctx, h.unit(req), mode, p)
	if err != nil {
		return nil, err
	}

	if req.ContentID != "" && h.deps.Repository != nil {
		err := h.deps.Repository.UpsertNoteMetadata(ctx, store.NoteMetadata{
			NoteID:    req.ContentID,
			ProjectID: req.ProjectID,
			Title:     res.Title,
			Tags:      res.Tags,
		})
		if err != nil {
			return nil, err
		}
	}

	resp := &Response{Title: res.Title, Tags: res.Tags}
	if res.TitleErr != nil {
		resp.TitleError = res.TitleErr.Error()
	}
	if res.TagsErr != nil {
		resp.TagsError = res.TagsErr.Error()
	}
	return resp, nil
}

func (h *Handler) embed(ctx context.Context, req Request) (*Response, error) {
	unit := h.unit(req)
	if unit.IsBlank() {
		return nil, api.ErrEmptyInput
	}
	if h.deps.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrBadRequest)
	}

	text := guard.Apply(unit.Text(), h.deps.EmbeddingMaxChars).Text
	vec, err := provider.EmbedText(ctx, h.deps.Embedder, req.Title, text)
	if err != nil {
		return nil, err
	}

	if req.ContentID != "" && h.deps.Vectors != nil {
		err := h.deps.Vectors.Upsert(ctx, api.Embedding{
			ContentID: req.ContentID,
			Scope:     req.ProjectID,
			Title:     req.Title,
			Content:   text,
			Vector:    vec,
		})
		if err != nil {
			return nil, api.PersistenceError{Op: "upsert embedding", Err: err}
		}
	}

	return &Response{Embedding: vec}, nil
}

func (h *Handler) describeImage(ctx context.Context, req Request, p api.Provider) (*Response, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, fmt.Errorf("%w: imageUrl is required", ErrBadRequest)
	}
	if h.deps.Fetcher == nil {
		return nil, fmt.Errorf("%w: image fetching is not configured", ErrBadRequest)
	}

	blob, err := h.deps.Fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch image: %w", ErrBadRequest, err)
	}
	if !blob.IsImage() {
		return nil, fmt.Errorf("%w: '%s' is not an image (%s)", ErrBadRequest, req.ImageURL, blob.MIMEType)
	}

	systemPrompt, err := h.deps.Prompts.Get(api.TaskImageDescription, p, map[string]any{
		"context": strings.TrimSpace(req.Content),
	})
	if err != nil {
		return nil, err
	}

	resp, err := h.deps.Caller.Call(ctx, p, api.CompletionRequest{
		Task:         api.TaskImageDescription,
		SystemPrompt: systemPrompt,
		Temperature:  api.TaskImageDescription.Temperature(),
		UserContent:  "Describe this image.",
		Image:        blob,
	})
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(resp.Text)

	if h.deps.Repository != nil {
		err := h.deps.Repository.UpsertImageSummary(ctx, store.ImageSummary{
			ImageURL:    req.ImageURL,
			ProjectID:   req.ProjectID,
			Description: description,
			Provider:    p,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Response{Text: description}, nil
}

func (h *Handler) text(ctx context.Context, req Request, task api.Task, p api.Provider) (*Response, error) {
	unit := h.unit(req)
	if unit.IsBlank() {
		return nil, api.ErrEmptyInput
	}

	systemPrompt, err := h.deps.Prompts.Get(task, p, map[string]any{
		"title": req.Title,
		"style": req.Style,
	})
	if err != nil {
		return nil, err
	}

	guarded := guard.Apply(unit.Text(), guard.SummaryMaxChars)
	resp, err := h.deps.Caller.Call(ctx, p, api.CompletionRequest{
		Task:         task,
		SystemPrompt: systemPrompt,
		UserContent:  guarded.Text,
		Temperature:  task.Temperature(),
	})
	if err != nil {
		return nil, err
	}

	return &Response{Text: strings.TrimSpace(resp.Text)}, nil
}
