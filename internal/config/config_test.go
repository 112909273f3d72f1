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

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alan-mat/cognote/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
server:
  listen_port: 9090
transport:
  addr: redis:6379
  db: 2
providers:
  default: anthropic
  timeout: 15s
  anthropic:
    api_key_env: TEST_ANTHROPIC_KEY
    model: claude-3-5-haiku-latest
vector_store:
  type: pgvector
  dsn: postgres://localhost/cognote
embedding:
  provider: cohere
  dimensions: 1024
  batch_size: 8
usage:
  enabled: true
  limit: 200
  window: 30m
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test")

	conf, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 9090, conf.Server.ListenPort)
	assert.Equal(t, "0.0.0.0:9090", conf.Server.Addr())
	assert.Equal(t, "redis:6379", conf.Transport.Addr)
	assert.Equal(t, 2, conf.Transport.DB)

	assert.Equal(t, "anthropic", conf.Providers.Default)
	assert.Equal(t, 15*time.Second, conf.Providers.Timeout)
	assert.Equal(t, "claude-3-5-haiku-latest", conf.Providers.Anthropic.Model)
	assert.Equal(t, "sk-test", conf.Providers.Anthropic.APIKey)

	assert.Equal(t, "pgvector", conf.VectorStore.Type)
	assert.Equal(t, "note_embeddings", conf.VectorStore.Collection)
	assert.Equal(t, "cohere", conf.Embedding.Provider)
	assert.Equal(t, uint(1024), conf.Embedding.Dimensions)
	assert.Equal(t, 8, conf.Embedding.BatchSize)
	assert.Equal(t, 30_000, conf.Embedding.MaxChars)

	assert.True(t, conf.Usage.Enabled)
	assert.Equal(t, int64(200), conf.Usage.Limit)
	assert.Equal(t, 30*time.Minute, conf.Usage.Window)

	level, err := conf.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestDefaults(t *testing.T) {
	conf, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "info", conf.LogLevel)
	assert.Equal(t, 8080, conf.Server.ListenPort)
	assert.Equal(t, 50051, conf.Server.GRPCPort)
	assert.Equal(t, "localhost:6379", conf.Transport.Addr)
	assert.Equal(t, "memory", conf.VectorStore.Type)
	assert.Equal(t, 60*time.Second, conf.Providers.Timeout)
	assert.Equal(t, "OPENAI_API_KEY", conf.Providers.OpenAI.APIKeyEnv)
	assert.Equal(t, "JINA_API_KEY", conf.Providers.Jina.APIKeyEnv)
	assert.Equal(t, 5, conf.Embedding.BatchSize)
	assert.Equal(t, 100_000, conf.Summary.MaxChars)
	assert.Equal(t, 5, conf.Metadata.MaxTags)
	assert.Equal(t, time.Hour, conf.Usage.Window)
}

func TestReadMissingFileUsesDefaults(t *testing.T) {
	conf, err := config.Read(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, conf.Server.ListenPort)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen_port: 7000\n"), 0o600))

	conf, err := config.Read(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, conf.Server.ListenPort)
}

func TestReadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := config.Read(path)
	assert.Error(t, err)
}

func TestRequireKey(t *testing.T) {
	t.Setenv("TEST_EMPTY_KEY", "")
	conf, err := config.Parse([]byte("providers:\n  openai:\n    api_key_env: TEST_EMPTY_KEY\n"))
	require.NoError(t, err)

	_, err = conf.Providers.OpenAI.RequireKey()
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.ErrorContains(t, err, "TEST_EMPTY_KEY")
}

func TestInvalidLogLevel(t *testing.T) {
	conf, err := config.Parse([]byte("log_level: loud\n"))
	require.NoError(t, err)

	_, err = conf.SlogLevel()
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}
