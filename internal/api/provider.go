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

package api

import (
	"fmt"
	"strings"
)

// Provider selects one of the two interchangeable LLM backends.
type Provider int

const (
	ProviderUnspecified Provider = iota

	// ProviderOpenAI is the chat-completion style backend.
	ProviderOpenAI

	// ProviderAnthropic is the message style backend.
	ProviderAnthropic
)

var providerName = map[Provider]string{
	ProviderUnspecified: "unspecified",
	ProviderOpenAI:      "openai",
	ProviderAnthropic:   "anthropic",
}

var providerAliases = map[string]Provider{
	"openai":    ProviderOpenAI,
	"gpt":       ProviderOpenAI,
	"anthropic": ProviderAnthropic,
	"claude":    ProviderAnthropic,
}

func (p Provider) String() string {
	return providerName[p]
}

// Providers lists every selectable provider.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic}
}

// ParseProvider resolves the string form of a provider.
// An empty string resolves to the default provider, openai.
func ParseProvider(s string) (Provider, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProviderOpenAI, nil
	}

	p, ok := providerAliases[s]
	if !ok {
		return ProviderUnspecified, fmt.Errorf("%w: '%s'", ErrUnknownProvider, s)
	}
	return p, nil
}

func (p Provider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Provider) UnmarshalText(b []byte) error {
	parsed, err := ParseProvider(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task names a generation task. Each task owns a prompt per provider.
type Task string

const (
	TaskSummary          Task = "summary"
	TaskTitle            Task = "title"
	TaskTags             Task = "tags"
	TaskTitleTags        Task = "title_tags"
	TaskFormat           Task = "format"
	TaskEnhance          Task = "enhance"
	TaskSummarizeText    Task = "summarize_text"
	TaskImageDescription Task = "image_description"
	TaskChat             Task = "chat"

	// TaskEmbedding never reaches a chat provider, it is
	// served by the configured embedder.
	TaskEmbedding Task = "embedding"
)

// Temperature is the sampling temperature a task is generated with.
// Structured outputs run close to deterministic.
func (t Task) Temperature() float32 {
	switch t {
	case TaskSummary, TaskTitle, TaskTags, TaskTitleTags, TaskImageDescription:
		return 0.2
	case TaskFormat, TaskSummarizeText:
		return 0.3
	case TaskEnhance:
		return 0.5
	case TaskChat:
		return 0.7
	default:
		return 0
	}
}

// GenerationTasks lists every task that resolves to a prompt.
func GenerationTasks() []Task {
	return []Task{
		TaskSummary,
		TaskTitle,
		TaskTags,
		TaskTitleTags,
		TaskFormat,
		TaskEnhance,
		TaskSummarizeText,
		TaskImageDescription,
		TaskChat,
	}
}

// ParseTask validates the string form of a task.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	if t == TaskEmbedding {
		return t, nil
	}
	for _, known := range GenerationTasks() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnknownTask, s)
}
