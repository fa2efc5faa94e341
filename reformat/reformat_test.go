package reformat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// fakeService scripts Generate responses per call.
type fakeService struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeService) Generate(_ context.Context, _, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var out string
	if i < len(f.responses) {
		out = f.responses[i]
	}
	return out, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleText = "It was a cold morning in the city. The streets were quiet and the lamps still burned against the gray light of dawn."

func TestReformat_ServiceOutput(t *testing.T) {
	// WHAT: service HTML is fence-stripped, sanitized, and heading-cased.
	svc := &fakeService{responses: []string{
		"```html\n<h2>THE COLD MORNING</h2><p>It was a cold morning in the city.</p><script>alert(1)</script>\n```",
	}}
	r := New(Config{Service: svc, Logger: quietLogger()})

	got := r.Reformat(context.Background(), sampleText, "Chapter 1: Dawn")

	if strings.Contains(got, "```") {
		t.Errorf("markdown fences survived: %q", got)
	}
	if strings.Contains(got, "<script>") || strings.Contains(got, "alert") {
		t.Errorf("script tag survived sanitization: %q", got)
	}
	if !strings.Contains(got, "<h2>The Cold Morning</h2>") {
		t.Errorf("expected title-cased heading, got %q", got)
	}
	if !strings.Contains(got, "<p>It was a cold morning in the city.</p>") {
		t.Errorf("body paragraph missing: %q", got)
	}
}

func TestReformat_RetriesRateLimit(t *testing.T) {
	// WHAT: rate-limit errors are retried with backoff until the service
	// succeeds; other attempts are not consumed.
	svc := &fakeService{
		errs: []error{
			&RateLimitError{Err: errors.New("429")},
			&RateLimitError{Err: errors.New("429")},
			nil,
		},
		responses: []string{"", "", "<p>" + sampleText + "</p>"},
	}
	r := New(Config{Service: svc, BaseDelay: time.Millisecond, Logger: quietLogger()})

	got := r.Reformat(context.Background(), sampleText, "Dawn")

	if svc.calls != 3 {
		t.Errorf("expected 3 service calls, got %d", svc.calls)
	}
	if !strings.Contains(got, "cold morning") {
		t.Errorf("expected service output after retries, got %q", got)
	}
}

func TestReformat_FallbackOnTerminalError(t *testing.T) {
	// WHAT: a non-rate-limit error falls back immediately, without retries.
	svc := &fakeService{errs: []error{errors.New("invalid api key")}}
	r := New(Config{Service: svc, BaseDelay: time.Millisecond, Logger: quietLogger()})

	got := r.Reformat(context.Background(), "First paragraph.\n\nSecond paragraph.", "Dawn")

	if svc.calls != 1 {
		t.Errorf("expected 1 service call, got %d", svc.calls)
	}
	if !strings.Contains(got, "<p>First paragraph.</p>") || !strings.Contains(got, "<p>Second paragraph.</p>") {
		t.Errorf("expected fallback paragraphs, got %q", got)
	}
}

func TestReformat_FallbackOnRetriesExhausted(t *testing.T) {
	rl := &RateLimitError{Err: errors.New("429")}
	svc := &fakeService{errs: []error{rl, rl, rl}}
	r := New(Config{Service: svc, MaxRetries: 2, BaseDelay: time.Millisecond, Logger: quietLogger()})

	got := r.Reformat(context.Background(), sampleText, "Dawn")

	if svc.calls != 3 {
		t.Errorf("expected 3 service calls (initial + 2 retries), got %d", svc.calls)
	}
	if !strings.Contains(got, "<p>") {
		t.Errorf("expected fallback HTML, got %q", got)
	}
}

func TestReformat_FallbackOnShortOutput(t *testing.T) {
	// WHY: a truncated or garbage response must not replace the chapter.
	svc := &fakeService{responses: []string{"<p>ok</p>"}}
	r := New(Config{Service: svc, Logger: quietLogger()})

	got := r.Reformat(context.Background(), sampleText, "Dawn")

	if !strings.Contains(got, "cold morning") {
		t.Errorf("expected fallback with original text, got %q", got)
	}
}

func TestReformat_TotalCoverage(t *testing.T) {
	// WHAT: non-empty input always yields non-empty HTML, service or not.
	cases := []*Reformatter{
		New(Config{Logger: quietLogger()}),
		New(Config{Service: &fakeService{errs: []error{errors.New("down")}}, Logger: quietLogger()}),
	}
	for i, r := range cases {
		if got := r.Reformat(context.Background(), sampleText, "Dawn"); got == "" {
			t.Errorf("case %d: expected non-empty HTML", i)
		}
	}
	// Empty input yields empty output.
	if got := cases[0].Reformat(context.Background(), "   ", "Dawn"); got != "" {
		t.Errorf("expected empty output for blank input, got %q", got)
	}
}

func TestReformat_ContextCancelledDuringBackoff(t *testing.T) {
	rl := &RateLimitError{Err: errors.New("429")}
	svc := &fakeService{errs: []error{rl, rl, rl, rl, rl, rl}}
	r := New(Config{Service: svc, BaseDelay: time.Hour, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.Reformat(ctx, sampleText, "Dawn")
	if svc.calls != 1 {
		t.Errorf("expected 1 call before cancelled backoff, got %d", svc.calls)
	}
	if got == "" {
		t.Error("expected fallback HTML on cancellation")
	}
}

func TestFallbackHTML_Escapes(t *testing.T) {
	got := fallbackHTML("1 < 2 & \"quotes\"")
	if strings.Contains(got, "< 2") || !strings.Contains(got, "&lt; 2") {
		t.Errorf("expected escaped markup, got %q", got)
	}
}

func TestPolish_DropsRedundantSubheading(t *testing.T) {
	// WHAT: a leading subheading that repeats the chapter title is removed.
	html := "<h2>Origins</h2>\n<p>The story begins.</p>"
	r := New(Config{Logger: quietLogger()})

	got := r.Polish(html, "Chapter 1: Origins")
	if strings.Contains(got, "<h2>") {
		t.Errorf("redundant subheading survived: %q", got)
	}
	if !strings.Contains(got, "<p>The story begins.</p>") {
		t.Errorf("body lost: %q", got)
	}

	// An unrelated subheading stays.
	got = r.Polish("<h2>A Different Topic</h2><p>Body.</p>", "Chapter 1: Origins")
	if !strings.Contains(got, "<h2>A Different Topic</h2>") {
		t.Errorf("unrelated subheading removed: %q", got)
	}
}

func TestPolish_TitleCasesShoutingHeadings(t *testing.T) {
	r := New(Config{Logger: quietLogger()})

	got := r.Polish("<p>Intro.</p><h2>GREAT IDEAS</h2><p>Body.</p><h3>the quiet part</h3>", "Dawn")
	if !strings.Contains(got, "<h2>Great Ideas</h2>") {
		t.Errorf("expected Title Case heading, got %q", got)
	}
	// Mixed-case headings are left alone.
	if !strings.Contains(got, "<h3>the quiet part</h3>") {
		t.Errorf("non-shouting heading was rewritten: %q", got)
	}
}

func TestTitleCase_SmallWords(t *testing.T) {
	got := titleCase("THE ART OF WAR AND PEACE")
	if got != "The Art of War and Peace" {
		t.Errorf("titleCase = %q", got)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```html\n<p>x</p>\n```", "<p>x</p>"},
		{"```\n<p>x</p>\n```", "<p>x</p>"},
		{"<p>x</p>", "<p>x</p>"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
