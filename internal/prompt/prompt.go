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

// Package prompt holds the versioned prompt templates sent to the
// providers. Templates are keyed by task and provider and rendered
// with text/template and the sprig function set.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/registry"
)

//go:embed templates/*/*.tmpl
var templateFS embed.FS

var ErrPromptNotFound = errors.New("prompt not found")

type Key struct {
	Task     api.Task
	Provider api.Provider
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Provider, k.Task)
}

// Template is a single parsed prompt version.
type Template struct {
	Key
	Version int
	tmpl    *template.Template
}

type Catalog struct {
	templates *registry.Registry[Key, Template]
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		templates: registry.New[Key, Template](),
	}
}

// Default returns a catalog loaded from the embedded templates.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

var fileName = regexp.MustCompile(`^([a-z_]+)\.v(\d+)\.tmpl$`)

// Load reads templates laid out as <provider>/<task>.v<N>.tmpl.
// When a task has several versions, the highest one is served.
func Load(fsys fs.FS) (*Catalog, error) {
	c := New()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		m := fileName.FindStringSubmatch(path.Base(p))
		if m == nil {
			return nil
		}
		provider, err := api.ParseProvider(path.Dir(p))
		if err != nil {
			return fmt.Errorf("template '%s': %w", p, err)
		}
		task, err := api.ParseTask(m[1])
		if err != nil {
			return fmt.Errorf("template '%s': %w", p, err)
		}
		version, _ := strconv.Atoi(m[2])

		text, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return c.Register(task, provider, version, string(text))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return c, nil
}

// Register parses and adds a template. A lower version than the
// one already registered for the same key is ignored.
func (c *Catalog) Register(task api.Task, provider api.Provider, version int, text string) error {
	key := Key{Task: task, Provider: provider}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("template '%s' is empty", key)
	}

	if cur, ok := c.templates.Get(key); ok && cur.Version > version {
		return nil
	}

	tmpl, err := template.New(key.String()).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template '%s': %w", key, err)
	}
	c.templates.Register(key, Template{Key: key, Version: version, tmpl: tmpl})
	return nil
}

// Get renders the prompt for the task and provider.
func (c *Catalog) Get(task api.Task, provider api.Provider, params map[string]any) (string, error) {
	key := Key{Task: task, Provider: provider}
	t, ok := c.templates.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrPromptNotFound, key)
	}

	if params == nil {
		params = map[string]any{}
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render template '%s': %w", key, err)
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", fmt.Errorf("template '%s' rendered empty", key)
	}
	return out, nil
}

// Version returns the served version of the template for the key.
func (c *Catalog) Version(task api.Task, provider api.Provider) (int, bool) {
	t, ok := c.templates.Get(Key{Task: task, Provider: provider})
	return t.Version, ok
}

// Validate reports every generation task and provider pair
// without a template.
func (c *Catalog) Validate() error {
	var errs []error
	for _, task := range api.GenerationTasks() {
		for _, p := range api.Providers() {
			key := Key{Task: task, Provider: p}
			if !c.templates.Exists(key) {
				errs = append(errs, fmt.Errorf("%w: '%s'", ErrPromptNotFound, key))
			}
		}
	}
	return errors.Join(errs...)
}
