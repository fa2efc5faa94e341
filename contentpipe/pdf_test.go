package contentpipe

import (
	"strings"
	"testing"
)

// testPages builds a 15-page text stream with chapter headings at fixed
// pages: "Introduction" on page 2, "Chapter 1: Origins" on page 5,
// "Chapter 2: Growth" on page 11. Pages 0-1 carry front matter.
func testPages() []string {
	pages := make([]string, 15)
	for i := range pages {
		pages[i] = "Body text continues on this page with several more words of prose."
	}
	pages[0] = "The Great Book\nby A. Writer\nFirst edition, published by Example Press in a year of note.\nAll rights reserved to the author and the publishing house forever."
	pages[1] = "Dedicated to everyone who reads long books all the way to the end."
	pages[2] = "Introduction\nThis book began as a set of notes taken over many years."
	pages[5] = "Chapter 1: Origins\nIn the beginning there was only an idea and a notebook."
	pages[11] = "Chapter 2: Growth\nThe idea grew slowly at first, then all at once."
	return pages
}

func TestSectionsFromOutline_Scenario(t *testing.T) {
	// WHAT: outline entries located at pages [2, 5, 11] in a 15-page
	// document yield Front Matter plus 3 chapter sections with correct
	// page spans.
	outline := []outlineEntry{
		{Title: "Introduction", Depth: 0},
		{Title: "Chapter 1: Origins", Depth: 0},
		{Title: "Chapter 2: Growth", Depth: 0},
	}
	pages := testPages()

	sections := sectionsFromOutline(outline, pages)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections (front matter + 3 chapters), got %d: %+v", len(sections), headings(sections))
	}
	want := []string{"Front Matter", "Introduction", "Chapter 1: Origins", "Chapter 2: Growth"}
	for i, h := range want {
		if sections[i].Heading != h {
			t.Errorf("section %d heading = %q, want %q", i, sections[i].Heading, h)
		}
	}

	// The front matter spans pages 0-1 only.
	if !strings.Contains(sections[0].Text, "Dedicated to everyone") {
		t.Errorf("front matter missing page 1 text: %q", sections[0].Text)
	}
	if strings.Contains(sections[0].Text, "set of notes") {
		t.Errorf("front matter bleeds into the introduction: %q", sections[0].Text)
	}

	// The introduction spans pages 2-4, not beyond.
	if strings.Contains(sections[1].Text, "only an idea") {
		t.Errorf("introduction bleeds into chapter 1: %q", sections[1].Text)
	}

	// The last chapter runs to the end of the document.
	if !strings.Contains(sections[3].Text, "all at once") {
		t.Errorf("chapter 2 missing its body: %q", sections[3].Text)
	}

	// Heading lines are stripped from section bodies.
	if strings.Contains(sections[2].Text, "Chapter 1: Origins") {
		t.Errorf("heading line not stripped from body: %q", sections[2].Text)
	}
}

func headings(sections []rawSection) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Heading
	}
	return out
}

func TestSectionsFromOutline_NoLocatedChapters(t *testing.T) {
	outline := []outlineEntry{{Title: "Chapter 9: Nowhere", Depth: 0}}
	pages := []string{"Completely unrelated page text with enough words to matter here."}
	if got := sectionsFromOutline(outline, pages); got != nil {
		t.Errorf("expected nil when no chapter can be located, got %+v", got)
	}
}

func TestFlattenOutline(t *testing.T) {
	outline := []outlineEntry{
		{Title: "Chapter 1: Origins", Depth: 0},
		{Title: "A Subsection", Depth: 1},       // nested, dropped
		{Title: "chapter 1: origins", Depth: 0}, // case-insensitive duplicate
		{Title: "Jane Smith", Depth: 0},         // 2 words, not a heading
		{Title: "Epilogue", Depth: 0},           // short but named section
		{Title: "", Depth: 0},
	}
	got := flattenOutline(outline)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Chapter 1: Origins" || got[1].Title != "Epilogue" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestFindHeadingInPages(t *testing.T) {
	pages := testPages()

	// Pass 1: standalone line in the first 10 lines.
	if got := findHeadingInPages("Chapter 1: Origins", pages); got != 5 {
		t.Errorf("findHeadingInPages(chapter 1) = %d, want 5", got)
	}
	// Deterministic on repeated calls.
	if got := findHeadingInPages("Chapter 1: Origins", pages); got != 5 {
		t.Errorf("second call = %d, want 5", got)
	}
	// Unknown headings are reported as not found.
	if got := findHeadingInPages("Chapter 99: Missing", pages); got != -1 {
		t.Errorf("expected -1 for missing heading, got %d", got)
	}
	if got := findHeadingInPages("", pages); got != -1 {
		t.Errorf("expected -1 for empty heading, got %d", got)
	}
}

func TestFindHeadingInPages_SkipsTOC(t *testing.T) {
	// WHY: chapter titles also appear on the contents page; matching there
	// would anchor every chapter at the TOC.
	toc := "Contents\nIntroduction .......... 3\nChapter 1: Origins .......... 6\nChapter 2: Growth .......... 12\nEpilogue .......... 20"
	pages := []string{
		toc,
		"Some unrelated page text here.",
		"The real chapter content mentions Chapter 2: Growth in passing within a paragraph of body text.",
	}
	if got := findHeadingInPages("Chapter 2: Growth", pages); got != 2 {
		t.Errorf("expected TOC page skipped, got page %d", got)
	}
}

func TestLooksLikeTOCPage(t *testing.T) {
	toc := "Introduction .......... 3\nChapter 1 .......... 6\nChapter 2 .......... 12\nEpilogue .......... 20"
	if !looksLikeTOCPage(toc) {
		t.Error("expected TOC page to be recognized")
	}
	if looksLikeTOCPage("Ordinary prose without any dot leaders at all.") {
		t.Error("prose misclassified as TOC")
	}
}

func TestSectionsFromHeuristics_Scenario(t *testing.T) {
	// WHAT: with no outline, chapter-looking lines near the top of a page
	// become section boundaries: two chapters, boundary at page 7.
	pages := make([]string, 10)
	for i := range pages {
		pages[i] = "Plain body text filling the page with words."
	}
	pages[0] = "Chapter 1: Beginnings\nThe first chapter opens here with plenty of prose."
	pages[7] = "A running header\nSome stray line\nChapter 2: Middle\nThe second chapter continues the story."

	sections := sectionsFromHeuristics(pages)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(sections), headings(sections))
	}
	if sections[0].Heading != "Chapter 1: Beginnings" || sections[1].Heading != "Chapter 2: Middle" {
		t.Errorf("unexpected headings: %+v", headings(sections))
	}
	if strings.Contains(sections[0].Text, "second chapter") {
		t.Errorf("boundary not at page 7: %q", sections[0].Text)
	}
}

func TestSectionsFromHeuristics_NoChapters(t *testing.T) {
	pages := []string{"Just prose.", "More prose."}
	if got := sectionsFromHeuristics(pages); got != nil {
		t.Errorf("expected nil for chapterless pages, got %+v", got)
	}
}

func TestFallbackSection(t *testing.T) {
	got := fallbackSection([]string{"Page one text.", "Page two text."})
	if len(got) != 1 || got[0].Heading != "Full Text" {
		t.Fatalf("expected single Full Text section, got %+v", got)
	}
	if !strings.Contains(got[0].Text, "Page two text.") {
		t.Errorf("missing page text: %q", got[0].Text)
	}

	if got := fallbackSection([]string{"", "  "}); got != nil {
		t.Errorf("expected nil for empty document, got %+v", got)
	}
}

func TestParseContentStream(t *testing.T) {
	// WHAT: Tj text runs accumulate; Td/TD/T* positioning operators break
	// lines so heading detection sees the page's visual structure.
	stream := strings.Join([]string{
		"BT",
		"/F1 24 Tf",
		"1 0 0 1 72 720 Td",
		"(Chapter 1: Origins) Tj",
		"0 -28 Td",
		"(In the beginning) Tj",
		"( there was an idea.) Tj",
		"T*",
		"[(Second ) -250 (line.)] TJ",
		"ET",
	}, "\n")

	got := parseContentStream([]byte(stream))
	want := "Chapter 1: Origins\nIn the beginning there was an idea.\nSecond line."
	if got != want {
		t.Errorf("parseContentStream = %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`back\\slash`, `back\slash`},
		{`tab\there`, "tab\there"},
		{`oct\040al`, "oct al"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTidyPageText(t *testing.T) {
	got := tidyPageText("A   line\twith   gaps\n\nnext  line ")
	want := "A line with gaps\n\nnext line"
	if got != want {
		t.Errorf("tidyPageText = %q, want %q", got, want)
	}
}
