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

// Package config reads the cognote configuration file. Defaults are
// applied after decoding and API keys are resolved from the
// environment variables the file names.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var (
	ErrMissingAPIKey   = errors.New("missing api key")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`
	GRPCPort   int    `yaml:"grpc_port"`
}

type WorkerConfig struct {
	Workers int `yaml:"workers"`
}

// ProviderConfig configures one vendor. The key itself never lives
// in the file, only the name of the variable holding it.
type ProviderConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	MaxTokens   int    `yaml:"max_tokens"`

	APIKey string `yaml:"-"`
}

type ProvidersConfig struct {
	Default   string         `yaml:"default"`
	Timeout   time.Duration  `yaml:"timeout"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Cohere    ProviderConfig `yaml:"cohere"`
	Jina      ProviderConfig `yaml:"jina"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions uint   `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	MaxChars   int    `yaml:"max_chars"`
}

type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Collection string `yaml:"collection"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKeyEnv  string `yaml:"api_key_env"`
	DSN        string `yaml:"dsn"`

	APIKey string `yaml:"-"`
}

type DatabaseConfig struct {
	// DSN selects the Postgres artifact repository. Empty keeps
	// artifacts in memory.
	DSN string `yaml:"dsn"`
}

type SummaryConfig struct {
	MaxChars int `yaml:"max_chars"`
}

type MetadataConfig struct {
	MaxChars int `yaml:"max_chars"`
	MaxTags  int `yaml:"max_tags"`
}

type UsageConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Limit     int64         `yaml:"limit"`
	Window    time.Duration `yaml:"window"`
	RPM       int           `yaml:"rpm"`
	Burst     int           `yaml:"burst"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type Config struct {
	LogLevel string `yaml:"log_level"`

	Server ServerConfig `yaml:"server"`
	Worker WorkerConfig `yaml:"worker"`

	Transport   RedisConfig       `yaml:"transport"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`

	Providers ProvidersConfig `yaml:"providers"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Summary   SummaryConfig   `yaml:"summary"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Usage     UsageConfig     `yaml:"usage"`
}

// Read decodes the file at path. A missing file yields the defaults.
func Read(path string) (*Config, error) {
	var conf Config

	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, &conf); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
		}
	}

	conf.applyDefaults()
	conf.resolveKeys()
	return &conf, nil
}

// Parse decodes configuration from memory.
func Parse(data []byte) (*Config, error) {
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	conf.applyDefaults()
	conf.resolveKeys()
	return &conf, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.LogLevel, "info")

	setDefault(&c.Server.ListenHost, "0.0.0.0")
	setDefault(&c.Server.ListenPort, 8080)
	setDefault(&c.Server.GRPCPort, 50051)
	setDefault(&c.Worker.Workers, 10)

	setDefault(&c.Transport.Addr, "localhost:6379")

	setDefault(&c.VectorStore.Type, "memory")
	setDefault(&c.VectorStore.Collection, "note_embeddings")
	setDefault(&c.VectorStore.Host, "localhost")
	setDefault(&c.VectorStore.Port, 6334)
	setDefault(&c.VectorStore.APIKeyEnv, "QDRANT_API_KEY")

	setDefault(&c.Providers.Default, "openai")
	setDefault(&c.Providers.Timeout, 60*time.Second)
	setDefault(&c.Providers.OpenAI.APIKeyEnv, "OPENAI_API_KEY")
	setDefault(&c.Providers.Anthropic.APIKeyEnv, "ANTHROPIC_API_KEY")
	setDefault(&c.Providers.Gemini.APIKeyEnv, "GEMINI_API_KEY")
	setDefault(&c.Providers.Cohere.APIKeyEnv, "COHERE_API_KEY")
	setDefault(&c.Providers.Jina.APIKeyEnv, "JINA_API_KEY")

	setDefault(&c.Embedding.Provider, "openai")
	setDefault(&c.Embedding.Dimensions, 1536)
	setDefault(&c.Embedding.BatchSize, 5)
	setDefault(&c.Embedding.MaxChars, 30_000)

	setDefault(&c.Summary.MaxChars, 100_000)
	setDefault(&c.Metadata.MaxChars, 100_000)
	setDefault(&c.Metadata.MaxTags, 5)

	setDefault(&c.Usage.Window, time.Hour)
	setDefault(&c.Usage.CacheSize, 1024)
	setDefault(&c.Usage.CacheTTL, time.Minute)
}

func (c *Config) resolveKeys() {
	for _, p := range []*ProviderConfig{
		&c.Providers.OpenAI,
		&c.Providers.Anthropic,
		&c.Providers.Gemini,
		&c.Providers.Cohere,
		&c.Providers.Jina,
	} {
		p.APIKey = os.Getenv(p.APIKeyEnv)
	}
	c.VectorStore.APIKey = os.Getenv(c.VectorStore.APIKeyEnv)
}

// RequireKey returns the API key of p or an error naming the
// variable that should hold it.
func (p ProviderConfig) RequireKey() (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, p.APIKeyEnv)
	}
	return p.APIKey, nil
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: '%s'", ErrInvalidLogLevel, c.LogLevel)
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

func (c ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.GRPCPort)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
