package contentpipe

import (
	"context"
	"errors"
)

// Format identifies a manuscript file type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatDocx Format = "docx"
)

// ErrUnsupportedFormat is returned for file types outside {pdf, epub, docx}.
var ErrUnsupportedFormat = errors.New("contentpipe: unsupported file type")

// ErrNoSections is returned when every recovery strategy yields zero sections,
// e.g. for an empty or image-only PDF.
var ErrNoSections = errors.New("contentpipe: no sections could be recovered from the manuscript")

// Section is one addressable unit of reading content: a chapter or a
// front/back-matter block. Order is zero-based and contiguous for a run;
// Slug is unique within a book.
type Section struct {
	Order       int    `json:"order"`
	Slug        string `json:"slug"`
	Heading     string `json:"heading"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
	WordCount   int    `json:"word_count"`
	IsFree      bool   `json:"is_free"`
}

// Sink persists recovered sections. A pipeline run replaces a book's whole
// section list: DeleteAllSections followed by one CreateSection per section
// in order. No transaction is assumed; a failing write leaves earlier
// writes committed.
type Sink interface {
	DeleteAllSections(ctx context.Context, bookID string) error
	CreateSection(ctx context.Context, bookID string, s *Section) error
}

// Replacer is an optional Sink upgrade. Sinks that can swap a book's whole
// section list atomically implement it, and the pipeline prefers it over
// the delete-then-insert sequence, closing the window where a concurrent
// reader sees an empty or partial list.
type Replacer interface {
	ReplaceSections(ctx context.Context, bookID string, sections []Section) error
}

// Reformatter turns raw section text into semantic HTML. Reformat never
// fails: implementations fall back to a deterministic local transform when
// the external service is unavailable. Polish applies only the heading
// post-processing, for HTML that already exists in the source file.
type Reformatter interface {
	Reformat(ctx context.Context, text, heading string) string
	Polish(html, heading string) string
}

// rawSection is a structure-recovery result before reformatting, slug
// assignment, and sample allocation. HTML is set when the source format
// carries its own markup (EPUB spine items, DOCX conversions); PDF
// sections leave it empty and go through the reformatter.
type rawSection struct {
	Heading string
	Text    string
	HTML    string
}

// outlineEntry is one entry of a PDF's embedded outline.
type outlineEntry struct {
	Title string
	Depth int
}

// chapterStart is a located chapter heading in a page-indexed text stream.
type chapterStart struct {
	Title string
	Page  int
}
