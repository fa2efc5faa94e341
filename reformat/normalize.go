package reformat

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\w)-\n(\w)`)
	pageNumberRe  = regexp.MustCompile(`(?m)^\s*\d{1,3}\s*$`)
	footerRe      = regexp.MustCompile(`(?m)^[a-z\s]{20,}\d{1,3}\s*$`)
	headerRe      = regexp.MustCompile(`(?m)^\d{1,3}\s+[a-z\s]{10,}$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	spacedPairRe  = regexp.MustCompile(`([A-Z]) ([A-Z])`)
)

// Normalize fixes text-extraction artifacts in raw manuscript text.
// It is pure; input with no artifacts passes through unchanged.
//
// Rules, in order: rejoin hyphen-broken words across line breaks, collapse
// letter-spaced uppercase headings, drop standalone page-number lines, drop
// running header/footer lines, and collapse 3+ blank lines to 2.
func Normalize(text string) string {
	cleaned := text
	for hyphenBreakRe.MatchString(cleaned) {
		cleaned = hyphenBreakRe.ReplaceAllString(cleaned, "$1$2")
	}

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = collapseSpacedCaps(line)
	}
	cleaned = strings.Join(lines, "\n")

	cleaned = pageNumberRe.ReplaceAllString(cleaned, "")
	cleaned = footerRe.ReplaceAllString(cleaned, "")
	cleaned = headerRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}

// collapseSpacedCaps undoes PDF letter-spacing on heading-like lines:
// "S T O R Y T E L L I N G" and partial forms like "G R E AT  I D EAS"
// collapse to their unspaced words. Runs to a fixpoint so a second
// Normalize pass is a no-op.
func collapseSpacedCaps(line string) string {
	for {
		next := collapseSpacedCapsOnce(line)
		if next == line {
			return line
		}
		line = next
	}
}

// collapseSpacedCapsOnce performs one collapse round. A line qualifies
// when more than 70% of its non-space characters are uppercase letters,
// it is longer than 5 characters, and it contains at least one stray
// single-letter token. The last condition keeps ordinary all-caps
// headings ("TABLE OF CONTENTS") intact.
func collapseSpacedCapsOnce(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= 5 {
		return line
	}

	nonSpace, upper := 0, 0
	for _, r := range trimmed {
		if r == ' ' || r == '\t' {
			continue
		}
		nonSpace++
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	if nonSpace == 0 || float64(upper)/float64(nonSpace) <= 0.7 {
		return line
	}

	hasStray := false
	for _, w := range strings.Fields(trimmed) {
		if len(w) == 1 && w[0] >= 'A' && w[0] <= 'Z' {
			hasStray = true
			break
		}
	}
	if !hasStray {
		return line
	}

	// Repeated passes: the pattern cannot see overlapping pairs in one go.
	collapsed := trimmed
	for spacedPairRe.MatchString(collapsed) {
		collapsed = spacedPairRe.ReplaceAllString(collapsed, "$1$2")
	}
	return strings.Join(strings.Fields(collapsed), " ")
}
