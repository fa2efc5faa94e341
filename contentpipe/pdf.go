package contentpipe

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// recoverPDF turns raw PDF bytes into ordered raw sections. Strategies are
// tried in order, first non-empty result wins:
//
//  1. embedded outline (bookmarks), start pages located by text search
//  2. chapter-heading regex heuristics over the top lines of each page
//  3. the whole document as a single "Full Text" section
func (p *Pipeline) recoverPDF(data []byte) ([]rawSection, error) {
	pages, outline, err := readPDF(data)
	if err != nil {
		return nil, err
	}

	strategies := []func() []rawSection{
		func() []rawSection { return sectionsFromOutline(outline, pages) },
		func() []rawSection { return sectionsFromHeuristics(pages) },
		func() []rawSection { return fallbackSection(pages) },
	}
	for _, strategy := range strategies {
		if sections := strategy(); len(sections) > 0 {
			return sections, nil
		}
	}
	return nil, nil
}

// readPDF extracts the page-indexed text stream and the flattened embedded
// outline from raw PDF bytes.
func readPDF(data []byte) ([]string, []outlineEntry, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, nil, fmt.Errorf("pdf read: %w", err)
	}

	pages := make([]string, pctx.PageCount)
	for nr := 1; nr <= pctx.PageCount; nr++ {
		pages[nr-1] = pdfPageText(pctx, nr)
	}

	return pages, readOutline(pctx), nil
}

// readOutline flattens the PDF bookmark tree to depth-indexed entries.
// Destinations are not trusted: bookmark targets frequently point at the
// wrong page after re-exports, so start pages are located by text search.
func readOutline(pctx *model.Context) []outlineEntry {
	bms, err := pdfcpu.Bookmarks(pctx)
	if err != nil {
		return nil
	}
	var entries []outlineEntry
	var walk func(bms []pdfcpu.Bookmark, depth int)
	walk = func(bms []pdfcpu.Bookmark, depth int) {
		for _, bm := range bms {
			entries = append(entries, outlineEntry{Title: strings.TrimSpace(bm.Title), Depth: depth})
			walk(bm.Kids, depth+1)
		}
	}
	walk(bms, 0)
	return entries
}

// pdfPageText extracts line-structured text from a single page's content
// stream.
func pdfPageText(pctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return parseContentStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// parseContentStream parses PDF content stream operators for text.
// Text-positioning operators (Td, TD, T*, ') become line breaks so that
// page text keeps its visual line structure for heading detection.
func parseContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		// Tj / TJ operators: (text) Tj, [(text) -100 (more)] TJ
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// ' operator: move to next line and show text.
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}

		// Td/TD/T* text positioning: start of a new visual line.
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")),
			bytes.Equal(line, []byte("T*")):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
	}

	return tidyPageText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape, e.g. \040 for space.
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// tidyPageText collapses horizontal whitespace per line and drops
// non-printable runes, preserving line breaks.
func tidyPageText(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			if unicode.IsSpace(r) {
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
				continue
			}
			if unicode.IsPrint(r) {
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		out = append(out, strings.TrimRight(sb.String(), " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// --- Tier 1: outline-based recovery ---

// sectionsFromOutline builds sections from the PDF's embedded outline.
// Returns nil when the outline is absent or no chapter can be located.
func sectionsFromOutline(outline []outlineEntry, pages []string) []rawSection {
	chapters := flattenOutline(outline)
	if len(chapters) == 0 {
		return nil
	}

	var starts []chapterStart
	for _, ch := range chapters {
		if page := findHeadingInPages(ch.Title, pages); page >= 0 {
			starts = append(starts, chapterStart{Title: ch.Title, Page: page})
		}
	}
	if len(starts) == 0 {
		return nil
	}

	sort.SliceStable(starts, func(i, j int) bool { return starts[i].Page < starts[j].Page })

	sections := buildPageSpans(starts, pages)
	if len(sections) == 0 {
		return nil
	}

	// Content before the first chapter becomes front matter when substantial.
	if starts[0].Page > 0 {
		front := strings.TrimSpace(joinPages(pages[:starts[0].Page]))
		if countWords(front) > 20 {
			sections = append([]rawSection{{Heading: "Front Matter", Text: front}}, sections...)
		}
	}
	return sections
}

// flattenOutline keeps the depth-0 outline entries that look like chapters:
// deduplicated case-insensitively, and at least three words long unless the
// heading classifier recognizes them as a named section.
func flattenOutline(outline []outlineEntry) []outlineEntry {
	seen := make(map[string]bool)
	var out []outlineEntry
	for _, e := range outline {
		if e.Depth > 0 {
			continue
		}
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		lower := strings.ToLower(title)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		if len(strings.Fields(title)) <= 2 && !isTopLevelHeading(title) {
			continue
		}
		out = append(out, outlineEntry{Title: title})
	}
	return out
}

// findHeadingInPages locates the page index where a heading appears.
//
// Pass 1 looks for the heading as a standalone line within the first 10
// lines of a page, the strongest signal. Pass 2 accepts a substring match
// anywhere on a page, but skips pages that look like a table of contents.
// Returns -1 when the heading cannot be located. Pure function.
func findHeadingInPages(heading string, pages []string) int {
	want := collapseKey(heading)
	if want == "" {
		return -1
	}

	for i, page := range pages {
		lines := strings.Split(page, "\n")
		if len(lines) > 10 {
			lines = lines[:10]
		}
		for _, line := range lines {
			key := collapseKey(line)
			if key == want {
				return i
			}
			// Tolerate trailing punctuation or page numbers on the line.
			if len(key) > 3 && float64(len(key)) <= float64(len(want))*1.3 && strings.Contains(key, want) {
				return i
			}
		}
	}

	for i, page := range pages {
		if !strings.Contains(collapseKey(page), want) {
			continue
		}
		if looksLikeTOCPage(page) {
			continue
		}
		return i
	}

	return -1
}

var (
	dotLeaderRe  = regexp.MustCompile(`\.{3,}`)
	dotPageNumRe = regexp.MustCompile(`\.\s*\d+\s*$`)
)

// looksLikeTOCPage reports whether a page resembles a table of contents:
// more than three lines carrying dot leaders or trailing page numbers.
func looksLikeTOCPage(page string) bool {
	count := 0
	for _, line := range strings.Split(page, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if dotLeaderRe.MatchString(line) || dotPageNumRe.MatchString(line) {
			count++
			if count > 3 {
				return true
			}
		}
	}
	return false
}

// --- Tier 2: regex heuristics ---

var chapterLineRe = regexp.MustCompile(`(?i)^(?:(?:chapter|part)\s+\d+[:\s].*|(?:introduction|foreword|preface|prologue|epilogue|conclusion|postscript|afterword|acknowledgments|acknowledgements|about the author|appendix|bibliography|glossary)(?:[:\s].*)?)`)

// sectionsFromHeuristics detects chapter starts by scanning the first five
// non-blank lines of every page for a chapter-looking heading.
func sectionsFromHeuristics(pages []string) []rawSection {
	var starts []chapterStart
	for i, page := range pages {
		var lines []string
		for _, l := range strings.Split(page, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) > 5 {
			lines = lines[:5]
		}
		for _, line := range lines {
			if len(line) < 100 && chapterLineRe.MatchString(line) {
				starts = append(starts, chapterStart{Title: line, Page: i})
				break
			}
		}
	}
	if len(starts) == 0 {
		return nil
	}
	return buildPageSpans(starts, pages)
}

// --- Tier 3: single-section fallback ---

func fallbackSection(pages []string) []rawSection {
	full := strings.TrimSpace(joinPages(pages))
	if full == "" {
		return nil
	}
	return []rawSection{{Heading: "Full Text", Text: full}}
}

// --- shared span construction ---

// buildPageSpans turns sorted chapter starts into sections: each chapter
// spans from its start page to the next chapter's start page (exclusive);
// the last one runs to the end of the document. The heading line itself is
// stripped from the body.
func buildPageSpans(starts []chapterStart, pages []string) []rawSection {
	var sections []rawSection
	for i, start := range starts {
		end := len(pages)
		if i+1 < len(starts) {
			end = starts[i+1].Page
		}
		body := joinPages(pages[start.Page:end])
		text := strings.TrimSpace(stripHeadingLine(start.Title, body))
		if text == "" {
			continue
		}
		sections = append(sections, rawSection{Heading: cleanHeading(start.Title), Text: text})
	}
	return sections
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n\n")
}

// stripHeadingLine removes the first line matching the chapter heading from
// body text, so the heading is not repeated inside the section.
func stripHeadingLine(heading, text string) string {
	want := collapseKey(heading)
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	found := false
	for _, line := range lines {
		if !found {
			key := collapseKey(line)
			if strings.Contains(key, want) || (len(key) > 3 && strings.Contains(want, key)) {
				found = true
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
