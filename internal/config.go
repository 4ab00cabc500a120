// Package internal provides application configuration and the MCP
// server runtime wiring.
package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/norwick/ekko/internal/export"
)

// Provider selection modes.
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Source SourceConfig      `yaml:"source"`
	Search SearchConfig      `yaml:"search"`
	Export ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// SourceConfig points at the export file and optionally pins the
// provider variant instead of structural detection.
type SourceConfig struct {
	Path     string `yaml:"path"`
	Provider string `yaml:"provider"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderAuto, ProviderOpenAI, ProviderClaude)),
	)
}

// SearchConfig holds ranking defaults applied when a query leaves them
// unset.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	SnippetWidth int `yaml:"snippet_width"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Min(1)),
		validation.Field(&c.SnippetWidth, validation.Min(16)),
	)
}

// ExportConfig holds rendering configuration.
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	if c.Format == "" {
		c.Format = export.FormatMarkdown
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.In(export.FormatMarkdown, export.FormatCSV, export.FormatJSON)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Source: SourceConfig{
			Provider: ProviderAuto,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			SnippetWidth: 160,
		},
		Export: ExportConfig{
			Dir:    "./exports",
			Format: export.FormatMarkdown,
		},
	}
}
