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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/embedding"
	"github.com/alan-mat/cognote/internal/function"
	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alan-mat/cognote/internal/vector"
	"github.com/alan-mat/cognote/server"
	"github.com/alan-mat/cognote/worker"
	"github.com/schollz/progressbar/v3"
)

type functionHandler interface {
	Handle(ctx context.Context, req function.Request) (*function.Response, error)
}

func startServer(ctx context.Context, a *app) error {
	functions, err := a.functions(ctx)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Functions:  functions,
		Dispatcher: a.dispatcher(),
		Transport:  a.jobTransport(),
		Stats:      a.stats(),
	}
	if engine, err := a.similarity(ctx); err != nil {
		slog.Warn("similarity queries disabled", "error", err)
	} else {
		deps.Similarity = engine
	}

	srv := server.New(server.ServerConfig{
		ListenHost: a.conf.Server.ListenHost,
		ListenPort: a.conf.Server.ListenPort,
		GRPCPort:   a.conf.Server.GRPCPort,
	}, deps)
	return srv.Serve(ctx)
}

func startWorker(ctx context.Context, a *app) error {
	processor, err := a.processor(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding: %w", err)
	}

	handler := tasks.NewEmbedBatchHandler(a.jobTransport(), processor)
	w := worker.New(a.redisClient(), a.conf.Worker.Workers, handler)
	return w.Start(ctx)
}

func runEmbed(ctx context.Context, a *app, cmd *embedCmd) error {
	data, _, err := readInput(cmd.File)
	if err != nil {
		return err
	}

	var units []api.ContentUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return fmt.Errorf("failed to parse notes: %w", err)
	}

	bar := newProgressBar(fmt.Sprintf("embedding %d notes", len(units)))

	if cmd.Async {
		return embedAsync(ctx, a, cmd, units, bar)
	}

	processor, err := a.processor(ctx)
	if err != nil {
		return err
	}

	items := make([]embedding.Item, 0, len(units))
	for _, u := range units {
		items = append(items, embedding.Item{ContentUnit: u, Scope: cmd.Project})
	}

	report := processor.Run(ctx, items, func(percent float64) {
		_ = bar.Set(int(percent))
	})
	_ = bar.Finish()

	fmt.Printf("\n%d embedded, %d failed\n", len(report.Succeeded), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  %s: %v\n", f.ID, f.Err)
	}
	if len(report.Failed) > 0 && len(report.Succeeded) == 0 {
		return errors.New("every note failed to embed")
	}
	return nil
}

func embedAsync(ctx context.Context, a *app, cmd *embedCmd, units []api.ContentUnit, bar *progressbar.ProgressBar) error {
	payload := &tasks.EmbedBatchPayload{Scope: cmd.Project}
	for _, u := range units {
		payload.Items = append(payload.Items, tasks.EmbedItem{ID: u.ID, Title: u.Title, Body: u.Body})
	}

	jobID, err := a.dispatcher().EnqueueEmbedBatch(ctx, payload)
	if err != nil {
		return err
	}

	stream, err := a.jobTransport().GetProgressStream(jobID)
	if err != nil {
		return err
	}

	final, err := transport.Follow(ctx, stream, func(ev transport.ProgressEvent) {
		_ = bar.Set(int(ev.Percent))
	})
	if err != nil {
		return fmt.Errorf("lost track of job %s: %w", jobID, err)
	}
	_ = bar.Finish()

	trace, err := a.jobTransport().GetTrace(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Printf("\njob %s %s: %d embedded, %d failed\n", jobID, trace.Status, trace.Succeeded, trace.Failed)
	if final.Status == transport.TraceStatusFailed {
		return fmt.Errorf("job %s failed: %s", jobID, final.Message)
	}
	return nil
}

func runSummarize(ctx context.Context, a *app, cmd *summarizeCmd) error {
	data, title, err := readInput(cmd.File)
	if err != nil {
		return err
	}

	h, err := a.functionHandler(ctx, cmd.Remote)
	if err != nil {
		return err
	}

	resp, err := h.Handle(ctx, function.Request{
		Task:      string(api.TaskSummary),
		Provider:  a.providerName(cmd.Provider),
		Content:   string(data),
		Title:     title,
		ProjectID: cmd.Project,
		ContentID: cmd.NoteID,
	})
	if err != nil {
		return err
	}
	if resp.Summary == nil {
		return errors.New("no summary returned")
	}

	fmt.Print(resp.Summary.Markdown())
	if resp.Summary.TruncationNote != "" {
		fmt.Printf("\n_%s_\n", resp.Summary.TruncationNote)
	}
	return nil
}

func runMetadata(ctx context.Context, a *app, cmd *metadataCmd) error {
	data, title, err := readInput(cmd.File)
	if err != nil {
		return err
	}

	h, err := a.functionHandler(ctx, cmd.Remote)
	if err != nil {
		return err
	}

	resp, err := h.Handle(ctx, function.Request{
		Task:      string(function.TaskMetadata),
		Provider:  a.providerName(cmd.Provider),
		Content:   string(data),
		Title:     title,
		ContentID: cmd.NoteID,
		Mode:      cmd.Mode,
	})
	if err != nil {
		return err
	}

	if resp.Title != nil {
		fmt.Printf("title: %s\n", *resp.Title)
	} else if resp.TitleError != "" {
		fmt.Printf("title: (%s)\n", resp.TitleError)
	}
	if resp.Tags != nil {
		fmt.Printf("tags:  %s\n", strings.Join(resp.Tags, ", "))
	} else if resp.TagsError != "" {
		fmt.Printf("tags:  (%s)\n", resp.TagsError)
	}
	return nil
}

func runSearch(ctx context.Context, a *app, cmd *searchCmd) error {
	if cmd.Query == "" && cmd.SimilarTo == "" {
		return errors.New("either a query or --similar-to is required")
	}

	engine, err := a.similarity(ctx)
	if err != nil {
		return err
	}

	threshold := vector.DefaultThreshold
	if cmd.Threshold != nil {
		threshold = *cmd.Threshold
	}

	var set *vector.ResultSet
	if cmd.SimilarTo != "" {
		set = engine.SimilarSet(cmd.SimilarTo, cmd.Project, cmd.Limit, threshold)
	} else {
		set = engine.SearchSet(cmd.Query, cmd.Project, cmd.Limit, threshold)
	}
	if err := set.Refresh(ctx); err != nil {
		return err
	}

	results := set.Accepted()
	if len(results) == 0 {
		fmt.Println("no matching notes")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.3f  %-36s  %s\n", r.Score, r.ContentID, r.Title)
	}
	return nil
}

// functionHandler returns the in-process boundary, or a client of a
// running server when remote is set.
func (a *app) functionHandler(ctx context.Context, remote string) (functionHandler, error) {
	if remote != "" {
		return function.NewRemoteClient(remote), nil
	}
	return a.functions(ctx)
}

func (a *app) providerName(name string) string {
	if name == "" {
		return a.conf.Providers.Default
	}
	return name
}

// readInput reads path, or stdin for "-", and derives a title from
// the file name.
func readInput(path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	base := filepath.Base(path)
	return data, strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func newProgressBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
