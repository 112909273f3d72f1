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


package registry_test

import (
	"sync"
	"testing"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := registry.New[api.Provider, string]()
	r.Register(api.ProviderOpenAI, "gpt-4o-mini")
	r.RegisterMany(registry.Entry[api.Provider, string]{Key: api.ProviderAnthropic, Value: "claude-3-5-haiku"})

	tests := []struct {
		key    api.Provider
		want   string
		wantOK bool
	}{
		{api.ProviderOpenAI, "gpt-4o-mini", true},
		{api.ProviderAnthropic, "claude-3-5-haiku", true},
		{api.ProviderUnspecified, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			got, ok := r.Get(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, r.Exists(tt.key))
		})
	}
}

func TestRegistryOverwriteKeepsLen(t *testing.T) {
	r := registry.New[api.Task, int]()
	r.RegisterMany(
		registry.Entry[api.Task, int]{Key: api.TaskSummary, Value: 1},
		registry.Entry[api.Task, int]{Key: api.TaskTitle, Value: 1},
	)
	r.Register(api.TaskSummary, 2)

	v, ok := r.Get(api.TaskSummary)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDeleteAndList(t *testing.T) {
	r := registry.New[api.Task, bool]()
	for _, task := range api.GenerationTasks() {
		r.Register(task, true)
	}
	assert.ElementsMatch(t, api.GenerationTasks(), r.List())

	r.Delete(api.TaskChat, api.TaskEnhance)
	assert.False(t, r.Exists(api.TaskChat))
	assert.False(t, r.Exists(api.TaskEnhance))
	assert.True(t, r.Exists(api.TaskSummary))
	assert.Equal(t, len(api.GenerationTasks())-2, r.Len())

	r.Delete(r.List()...)
	assert.Empty(t, r.List())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := registry.New[int, int]()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(i, i*i)
			_, _ = r.Get(i)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
	v, ok := r.Get(7)
	require.True(t, ok)
	assert.Equal(t, 49, v)
}
