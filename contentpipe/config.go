// Package contentpipe converts manuscript files (PDF, EPUB, DOCX) into an
// ordered list of reading sections for the web reader.
//
// Manuscript structure is inferred, not declared: PDFs are positioned glyph
// streams, authors mis-format headings, and extraction tools leave artifacts.
// Each format has its own structure recoverer; PDF recovery degrades through
// three tiers (embedded outline, heading heuristics, single-section fallback).
// After recovery the pipeline reformats each section to semantic HTML,
// assigns the free-sample boundary by cumulative word count, and replaces
// the book's persisted section list.
//
// Usage:
//
//	pipe := contentpipe.New(contentpipe.Config{Sink: store})
//	err := pipe.Process(ctx, bookID, manuscriptURL, contentpipe.FormatPDF, 10)
package contentpipe

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bputano/leafbooks/safeurl"
)

// Config configures the content pipeline.
type Config struct {
	// MaxFileSize caps the manuscript download size (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// FetchTimeout bounds the manuscript download (default: 60s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// UserAgent sent with the manuscript download request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Sink receives the recovered sections. Required for Process.
	Sink Sink `json:"-" yaml:"-"`

	// Reformatter produces section HTML. Defaults to the local fallback
	// formatter (no external service).
	Reformatter Reformatter `json:"-" yaml:"-"`

	// HTTPClient used for the manuscript download. Defaults to a client
	// with FetchTimeout and SSRF-checked redirects.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// URLValidator checks the manuscript URL and every redirect hop.
	// Default: safeurl.Validate.
	URLValidator func(string) error `json:"-" yaml:"-"`

	// Logger for progress and warnings.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "leafbooks-contentpipe/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.Validate
	}
}

// LoadConfigFile reads the scalar pipeline settings from a YAML file.
// Collaborators (sink, reformatter, HTTP client) are wired in code.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &cfg, nil
}
