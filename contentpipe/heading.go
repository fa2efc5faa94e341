package contentpipe

import (
	"regexp"
	"strings"
)

var (
	chapterNumRe = regexp.MustCompile(`(?i)^(chapter|part)\s+\d`)
	numberedRe   = regexp.MustCompile(`^\d+[\s:.]+\w`)
	partRe       = regexp.MustCompile(`(?i)^part\s+`)

	spacedWordRe = regexp.MustCompile(`^[A-Z]( [A-Z])+$`)
	slugJunkRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// namedSections is the fixed vocabulary of front/back-matter headings that
// qualify as top-level even when very short.
var namedSections = []string{
	"introduction",
	"foreword",
	"preface",
	"prologue",
	"epilogue",
	"conclusion",
	"postscript",
	"afterword",
	"acknowledgments",
	"acknowledgements",
	"about the author",
	"appendix",
	"bibliography",
	"glossary",
	"index",
	"table of contents",
	"dedication",
	"copyright",
}

// isTopLevelHeading reports whether a title looks like a chapter, part, or
// named front/back-matter section. Used to keep short outline entries that
// would otherwise be dropped as probable metadata (author name, subtitle).
func isTopLevelHeading(title string) bool {
	if chapterNumRe.MatchString(title) {
		return true
	}
	if numberedRe.MatchString(title) {
		return true
	}
	lower := strings.ToLower(title)
	for _, name := range namedSections {
		if strings.HasPrefix(lower, name) {
			return true
		}
	}
	return partRe.MatchString(title)
}

// cleanHeading removes letter-spacing artifacts from a heading, e.g.
// "T A B L E   O F   C O N T E N T S" becomes "TABLE OF CONTENTS".
// Words are delimited by runs of two or more spaces in the spaced form.
func cleanHeading(title string) string {
	words := strings.Split(strings.TrimSpace(title), "  ")
	for i, w := range words {
		w = strings.TrimSpace(w)
		if spacedWordRe.MatchString(w) {
			w = strings.ReplaceAll(w, " ", "")
		}
		words[i] = w
	}
	out := strings.Join(words, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(out), " "))
}

// slugify derives a URL-safe identifier from a heading.
func slugify(text string) string {
	slug := slugJunkRe.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		return "section"
	}
	return slug
}

// countWords counts whitespace-delimited tokens.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// collapseKey lowercases text and removes all whitespace, producing the
// form used for heading comparisons across extraction artifacts.
func collapseKey(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
