package contentpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/bputano/leafbooks/reformat"
)

// Pipeline is the manuscript structuring engine.
type Pipeline struct {
	cfg         Config
	logger      *slog.Logger
	client      *http.Client
	reformatter Reformatter
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	client := cfg.HTTPClient
	if client == nil {
		client = newFetchClient(&cfg)
	}
	rf := cfg.Reformatter
	if rf == nil {
		rf = reformat.New(reformat.Config{Logger: cfg.Logger})
	}
	return &Pipeline{
		cfg:         cfg,
		logger:      cfg.Logger,
		client:      client,
		reformatter: rf,
	}
}

// Detect returns the manuscript format based on the file extension of a
// path or URL.
func (p *Pipeline) Detect(name string) (Format, error) {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".epub":
		return FormatEPUB, nil
	case ".docx":
		return FormatDocx, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path.Ext(name))
	}
}

// SupportedFormats returns all supported manuscript formats.
func SupportedFormats() []string {
	return []string{"pdf", "epub", "docx"}
}

// Process downloads a manuscript, recovers its section structure, reformats
// each section to semantic HTML, allocates the free sample by word count,
// and replaces the book's persisted section list.
//
// The run is sequential: structure recovery, then one reformatting call per
// section in order (the external service is rate limited), then
// persistence. Reformatting failures never abort the run; fetch, format,
// recovery, and persistence failures do. With a plain Sink, sections
// written before a failing write stay committed; a Replacer sink swaps
// the list atomically.
func (p *Pipeline) Process(ctx context.Context, bookID, manuscriptURL string, format Format, samplePercent int) error {
	if p.cfg.Sink == nil {
		return errors.New("contentpipe: no sink configured")
	}
	if samplePercent < 0 || samplePercent > 100 {
		return fmt.Errorf("contentpipe: sample percent out of range: %d", samplePercent)
	}

	p.logger.Info("processing manuscript",
		"book_id", bookID, "format", format, "sample_percent", samplePercent)

	data, err := p.fetchManuscript(ctx, manuscriptURL)
	if err != nil {
		return err
	}

	raw, err := p.recoverStructure(data, format)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return ErrNoSections
	}

	sections := p.assembleSections(ctx, raw)
	allocateSample(sections, samplePercent)

	if err := p.persist(ctx, bookID, sections); err != nil {
		return err
	}

	p.logger.Info("manuscript processed", "book_id", bookID, "sections", len(sections))
	return nil
}

func (p *Pipeline) recoverStructure(data []byte, format Format) ([]rawSection, error) {
	switch format {
	case FormatPDF:
		return p.recoverPDF(data)
	case FormatEPUB:
		return p.recoverEPUB(data)
	case FormatDocx:
		return p.recoverDocx(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// assembleSections reformats each raw section in order and assigns order
// and slug. Slug collisions within the run get a 1-based position suffix.
func (p *Pipeline) assembleSections(ctx context.Context, raw []rawSection) []Section {
	used := make(map[string]bool, len(raw))
	sections := make([]Section, 0, len(raw))

	for i, r := range raw {
		var htmlContent string
		if r.HTML != "" {
			htmlContent = p.reformatter.Polish(r.HTML, r.Heading)
		} else {
			p.logger.Debug("reformatting section",
				"heading", r.Heading, "words", countWords(r.Text))
			htmlContent = p.reformatter.Reformat(ctx, r.Text, r.Heading)
		}

		slug := slugify(r.Heading)
		if used[slug] {
			slug = fmt.Sprintf("%s-%d", slug, i+1)
		}
		used[slug] = true

		sections = append(sections, Section{
			Order:       i,
			Slug:        slug,
			Heading:     r.Heading,
			HTMLContent: htmlContent,
			TextContent: r.Text,
			WordCount:   countWords(r.Text),
		})
	}
	return sections
}

// persist replaces the book's section list. Sinks that implement Replacer
// get the whole swap in one call; everything else gets delete-then-insert,
// which can leave a partial list behind on failure.
func (p *Pipeline) persist(ctx context.Context, bookID string, sections []Section) error {
	if r, ok := p.cfg.Sink.(Replacer); ok {
		if err := r.ReplaceSections(ctx, bookID, sections); err != nil {
			return fmt.Errorf("replace sections for %s: %w", bookID, err)
		}
		return nil
	}
	if err := p.cfg.Sink.DeleteAllSections(ctx, bookID); err != nil {
		return fmt.Errorf("delete sections for %s: %w", bookID, err)
	}
	for i := range sections {
		if err := p.cfg.Sink.CreateSection(ctx, bookID, &sections[i]); err != nil {
			return fmt.Errorf("create section %d for %s: %w", sections[i].Order, bookID, err)
		}
	}
	return nil
}
