// Package reformat turns raw manuscript section text into clean semantic
// HTML for the web reader.
//
// The primary path asks an external text-formatting service for the
// rewrite, retrying rate-limit failures with exponential backoff. Any other
// failure, exhausted retries, or a suspiciously short response falls
// through to a deterministic local transform, so Reformat always returns
// usable HTML and never surfaces an error to the pipeline.
package reformat

import (
	"context"
	"errors"
	stdhtml "html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Service is the external text-to-HTML formatting collaborator. A rate
// limit is reported as a *RateLimitError so the caller can retry; any
// other error is terminal for the attempt.
type Service interface {
	Generate(ctx context.Context, prompt, text string) (string, error)
}

// Config configures a Reformatter.
type Config struct {
	// Service performs the semantic rewrite. Nil means the local
	// fallback formatter is always used.
	Service Service

	// MaxRetries bounds rate-limit retries (default: 5).
	MaxRetries int

	// BaseDelay is the first retry delay, doubled each attempt
	// (default: 5s).
	BaseDelay time.Duration

	// MaxDelay caps the retry delay (default: 60s).
	MaxDelay time.Duration

	// Logger for retry and fallback warnings.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 5 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Reformatter converts section text to semantic HTML.
type Reformatter struct {
	cfg       Config
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
}

// New creates a Reformatter.
func New(cfg Config) *Reformatter {
	cfg.defaults()
	return &Reformatter{
		cfg:       cfg,
		logger:    cfg.Logger,
		sanitizer: sectionPolicy(),
	}
}

// sectionPolicy allows exactly the semantic tags the service is instructed
// to emit. Everything else the service might hallucinate is stripped.
func sectionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "h2", "h3", "blockquote", "ul", "ol", "li", "em", "strong", "br")
	return p
}

// formatPrompt instructs the service to repair extraction artifacts and
// emit bare semantic HTML.
const formatPrompt = `You are a book formatting assistant. Convert the following text from a book chapter into clean, well-structured HTML for a web-based ebook reader.

The text was extracted from a PDF and has artifacts you MUST fix.

Rules:
- Output ONLY the HTML body content (no <html>, <head>, <body> tags, no markdown fences)
- Use semantic HTML tags:
  - <p> for paragraphs (merge lines that are part of the same paragraph)
  - <h2> for major subheadings within the chapter
  - <h3> for minor subheadings
  - <blockquote> for quotations (especially lines starting with quotes or attributed to someone)
  - <ul>/<ol> with <li> for lists
  - <em> for emphasized/italic text
  - <strong> for bold text

CRITICAL - Fix these PDF artifacts:
- Broken line breaks: PDF extraction splits lines mid-sentence. Rejoin them into flowing paragraphs.
- ALL CAPS headings: Convert headings from ALL CAPS to Title Case. For example "THEMASTERSKILL" becomes "The Master Skill"
- Concatenated words in headings: PDF extraction sometimes removes spaces between words. If a heading looks like "DEFININGAPOWERFULPURPOSE", split it into proper words: "Defining a Powerful Purpose"
- Remove any stray page numbers or running headers/footers
- Example emails, letters, or sample text: wrap these in <blockquote> tags to visually distinguish them from the main body text. Look for "Subject:" lines, "Dear...", "From:", etc.
- Preserve the author's actual words in body text - do not rephrase
- Do not add any commentary or explanation - output pure HTML only`

// Reformat converts raw section text to semantic HTML. heading is the
// chapter's own title, used to drop a redundant first subheading. Reformat
// never fails; the worst case is the deterministic fallback transform.
func (r *Reformatter) Reformat(ctx context.Context, text, heading string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	fallback := func() string {
		return r.postprocess(fallbackHTML(text), heading)
	}

	if r.cfg.Service == nil {
		return fallback()
	}

	cleaned := Normalize(text)

	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		out, err := r.cfg.Service.Generate(ctx, formatPrompt, cleaned)
		if err == nil {
			body := stripFences(strings.TrimSpace(out))
			// A response far shorter than the input signals truncation
			// or garbage.
			if body == "" || len(body) < len(text)/10 {
				r.logger.Warn("service output suspiciously short, using fallback",
					"heading", heading, "got", len(body), "input", len(text))
				return fallback()
			}
			return r.postprocess(r.sanitizer.Sanitize(body), heading)
		}
		lastErr = err

		var rl *RateLimitError
		if !errors.As(err, &rl) || attempt == r.cfg.MaxRetries {
			break
		}

		delay := r.cfg.BaseDelay << uint(attempt)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
		r.logger.Warn("reformat service rate limited, retrying",
			"heading", heading, "attempt", attempt+1,
			"max_retries", r.cfg.MaxRetries, "delay_ms", delay.Milliseconds())
		select {
		case <-ctx.Done():
			return fallback()
		case <-time.After(delay):
		}
	}

	r.logger.Warn("reformat service failed, using fallback",
		"heading", heading, "error", lastErr)
	return fallback()
}

// Polish applies the heading post-processing to HTML that did not come
// from the formatting service (EPUB spine items, DOCX conversions).
func (r *Reformatter) Polish(html, heading string) string {
	return r.postprocess(html, heading)
}

var blankSplitRe = regexp.MustCompile(`\n{2,}`)

// fallbackHTML is the deterministic local transform: split on blank-line
// boundaries, escape, and wrap each paragraph in <p>.
func fallbackHTML(text string) string {
	var sb strings.Builder
	for _, para := range blankSplitRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(stdhtml.EscapeString(para))
		sb.WriteString("</p>\n")
	}
	return strings.TrimSpace(sb.String())
}

var (
	openFenceRe  = regexp.MustCompile("(?i)^```html?[ \t]*\n?")
	closeFenceRe = regexp.MustCompile("\n?```[ \t]*$")
)

// stripFences removes markdown code fences some services wrap output in.
func stripFences(s string) string {
	s = openFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
