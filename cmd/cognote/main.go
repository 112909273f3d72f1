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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alan-mat/cognote/internal/config"
	"github.com/alexflint/go-arg"
)

const (
	ProgramName   = "Cognote"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/cognote"
)

type serveCmd struct{}

type workerCmd struct{}

type embedCmd struct {
	File    string `arg:"positional,required" help:"JSON array of {id, title, body} objects, - for stdin"`
	Project string `arg:"--project,-P" help:"project scope of the embedded notes"`
	Async   bool   `arg:"--async" help:"enqueue the batch for the worker and follow its progress"`
}

type summarizeCmd struct {
	File     string `arg:"positional,required" help:"markdown note to summarize, - for stdin"`
	Provider string `arg:"--provider,-p" help:"LLM provider, defaults to the configured one"`
	NoteID   string `arg:"--note-id" help:"persist the summary for this note"`
	Project  string `arg:"--project,-P" help:"project scope of the note"`
	Remote   string `arg:"--remote" help:"call the function boundary of a running server at this URL"`
}

type metadataCmd struct {
	File     string `arg:"positional,required" help:"markdown note, - for stdin"`
	Mode     string `arg:"--mode,-m" default:"BOTH" help:"TITLE, TAGS or BOTH"`
	Provider string `arg:"--provider,-p" help:"LLM provider, defaults to the configured one"`
	NoteID   string `arg:"--note-id" help:"persist the metadata for this note"`
	Remote   string `arg:"--remote" help:"call the function boundary of a running server at this URL"`
}

type searchCmd struct {
	Query     string   `arg:"positional" help:"free text query"`
	SimilarTo string   `arg:"--similar-to,-s" help:"find notes similar to this note id instead"`
	Project   string   `arg:"--project,-P" help:"restrict results to a project"`
	Limit     uint     `arg:"--limit,-n" default:"10" help:"maximum number of results"`
	Threshold *float64 `arg:"--threshold,-t" help:"minimum similarity, defaults to 0.5"`
}

type args struct {
	Config string `arg:"--config,-c,env:COGNOTE_CONFIG" default:"cognote.yaml" help:"path to the configuration file"`

	Server    *serveCmd     `arg:"subcommand:serve" help:"start the Cognote server"`
	Worker    *workerCmd    `arg:"subcommand:work" help:"start the Cognote worker"`
	Embed     *embedCmd     `arg:"subcommand:embed" help:"embed a batch of notes"`
	Summarize *summarizeCmd `arg:"subcommand:summarize" help:"generate a structured summary of a note"`
	Metadata  *metadataCmd  `arg:"subcommand:metadata" help:"generate a title and tags for a note"`
	Search    *searchCmd    `arg:"subcommand:search" help:"query similar notes"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	conf, err := config.Read(args.Config)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	level, err := conf.SlogLevel()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cmd func(context.Context, *app) error

	switch sub := p.Subcommand().(type) {
	case *serveCmd:
		cmd = startServer
	case *workerCmd:
		cmd = startWorker
	case *embedCmd:
		cmd = func(ctx context.Context, a *app) error { return runEmbed(ctx, a, sub) }
	case *summarizeCmd:
		cmd = func(ctx context.Context, a *app) error { return runSummarize(ctx, a, sub) }
	case *metadataCmd:
		cmd = func(ctx context.Context, a *app) error { return runMetadata(ctx, a, sub) }
	case *searchCmd:
		cmd = func(ctx context.Context, a *app) error { return runSearch(ctx, a, sub) }
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(conf)
	err = cmd(ctx, a)
	if cerr := a.Close(); cerr != nil {
		slog.Warn("failed to close connections", "error", cerr)
	}
	if err != nil {
		slog.Error("command failed", "command", p.SubcommandNames()[0], "error", err)
		os.Exit(1)
	}
}
