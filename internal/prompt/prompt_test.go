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

package prompt_test

import (
	"testing"
	"testing/fstest"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCoversAllTasks(t *testing.T) {
	c, err := prompt.Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	for _, task := range api.GenerationTasks() {
		for _, p := range api.Providers() {
			out, err := c.Get(task, p, nil)
			require.NoError(t, err, "%s/%s", p, task)
			assert.NotEmpty(t, out)

			_, ok := c.Version(task, p)
			assert.True(t, ok)
		}
	}
}

func TestStructuralContractIsProviderIndependent(t *testing.T) {
	c, err := prompt.Default()
	require.NoError(t, err)

	for _, p := range api.Providers() {
		out, err := c.Get(api.TaskTitleTags, p, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "TITLE:")
		assert.Contains(t, out, "TAGS:")
	}

	openai, err := c.Get(api.TaskSummary, api.ProviderOpenAI, nil)
	require.NoError(t, err)
	anthropic, err := c.Get(api.TaskSummary, api.ProviderAnthropic, nil)
	require.NoError(t, err)
	for _, fields := range [][2]string{
		{"executiveSummary", api.SectionExecutiveSummary},
		{"description", api.SectionDescription},
		{"keyLearnings", api.SectionKeyLearnings},
		{"blockers", api.SectionBlockers},
		{"nextSteps", api.SectionNextSteps},
	} {
		assert.Contains(t, openai, fields[0])
		assert.Contains(t, anthropic, "## "+fields[1])
	}
}

func TestGetRendersParams(t *testing.T) {
	c, err := prompt.Default()
	require.NoError(t, err)

	out, err := c.Get(api.TaskTags, api.ProviderOpenAI, map[string]any{
		"maxTags":      3,
		"existingTags": []string{"finance", "q3"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "up to 3 relevant tags")
	assert.Contains(t, out, "finance, q3")

	out, err = c.Get(api.TaskTags, api.ProviderOpenAI, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "up to 5 relevant tags")
	assert.NotContains(t, out, "existing tags")

	out, err = c.Get(api.TaskSummary, api.ProviderAnthropic, map[string]any{"title": "Weekly sync"})
	require.NoError(t, err)
	assert.Contains(t, out, `titled "Weekly sync"`)
}

func TestLoadServesHighestVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"openai/chat.v1.tmpl":    {Data: []byte("first")},
		"openai/chat.v3.tmpl":    {Data: []byte("third")},
		"openai/chat.v2.tmpl":    {Data: []byte("second")},
		"anthropic/chat.v1.tmpl": {Data: []byte("claude")},
		"openai/README.md":       {Data: []byte("ignored")},
	}

	c, err := prompt.Load(fsys)
	require.NoError(t, err)

	out, err := c.Get(api.TaskChat, api.ProviderOpenAI, nil)
	require.NoError(t, err)
	assert.Equal(t, "third", out)

	v, ok := c.Version(api.TaskChat, api.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestValidateReportsMissingPairs(t *testing.T) {
	c := prompt.New()
	require.NoError(t, c.Register(api.TaskSummary, api.ProviderOpenAI, 1, "summarize"))

	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)
	assert.Contains(t, err.Error(), "anthropic/summary")
	assert.NotContains(t, err.Error(), "openai/summary'")

	_, err = c.Get(api.TaskChat, api.ProviderAnthropic, nil)
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)
}

func TestLoadRejectsUnknownNames(t *testing.T) {
	_, err := prompt.Load(fstest.MapFS{
		"mistral/chat.v1.tmpl": {Data: []byte("hi")},
	})
	assert.ErrorIs(t, err, api.ErrUnknownProvider)

	_, err = prompt.Load(fstest.MapFS{
		"openai/poem.v1.tmpl": {Data: []byte("hi")},
	})
	assert.ErrorIs(t, err, api.ErrUnknownTask)
}
