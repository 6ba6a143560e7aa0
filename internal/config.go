package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/index"
)

// Config represents the worker configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Session SessionConfig     `yaml:"session"`
	Limits  LimitsConfig      `yaml:"limits"`
	Index   IndexConfig       `yaml:"index"`
	Watch   WatchConfig       `yaml:"watch"`
	Debug   DebugConfig       `yaml:"debug"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	return c.Debug.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// SessionConfig holds the default chunking parameters applied when an
// init request omits them.
type SessionConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ChunkOverlap, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("session: chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// LimitsConfig holds per-request defaults for search and ranking.
type LimitsConfig struct {
	MaxMatches    int `yaml:"max_matches"`
	ContextLines  int `yaml:"context_lines"`
	QueryTopK     int `yaml:"query_top_k"`
	PreviewLength int `yaml:"preview_length"`
}

// Validate validates the limits configuration.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxMatches, validation.Required, validation.Min(1)),
		validation.Field(&c.ContextLines, validation.Min(0)),
		validation.Field(&c.QueryTopK, validation.Required, validation.Min(1)),
		validation.Field(&c.PreviewLength, validation.Required, validation.Min(1)),
	)
}

// IndexConfig holds the full-text chunk index configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// WatchConfig controls the on-disk staleness watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DebugConfig controls the optional read-only debug HTTP surface.
type DebugConfig struct {
	Enabled bool       `yaml:"enabled"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the debug configuration.
func (c *DebugConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP listener configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Session: SessionConfig{
			ChunkSize:    4000,
			ChunkOverlap: 200,
		},
		Limits: LimitsConfig{
			MaxMatches:    10,
			ContextLines:  2,
			QueryTopK:     5,
			PreviewLength: 200,
		},
		Index: IndexConfig{
			Enabled: true,
			DSN:     index.MemoryDSN,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
		Debug: DebugConfig{
			Enabled: false,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
	}
}
