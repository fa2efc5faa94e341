package reformat

import (
	"regexp"
	"strings"
)

var (
	leadSubheadingRe = regexp.MustCompile(`(?is)^\s*<h([23])[^>]*>(.*?)</h[23]>\s*`)
	tagRe            = regexp.MustCompile(`<[^>]+>`)
	headingTagRe     = regexp.MustCompile(`(?is)(<h[2-5][^>]*>)(.*?)(</h[2-5]>)`)
)

// postprocess repairs two artifacts the service (and source documents)
// routinely leave behind: a first subheading that merely repeats the
// chapter title, and headings stuck in ALL CAPS.
func (r *Reformatter) postprocess(html, heading string) string {
	html = dropRedundantSubheading(html, heading)
	html = titleCaseHeadings(html)
	return strings.TrimSpace(html)
}

// dropRedundantSubheading removes a leading <h2>/<h3> that duplicates the
// chapter heading the reader already renders above the body.
func dropRedundantSubheading(html, heading string) string {
	m := leadSubheadingRe.FindStringSubmatch(html)
	if m == nil {
		return html
	}
	sub := strings.TrimSpace(tagRe.ReplaceAllString(m[2], ""))
	if sub == "" || !echoesHeading(sub, heading) {
		return html
	}
	return leadSubheadingRe.ReplaceAllString(html, "")
}

// echoesHeading reports whether sub restates heading: one contains the
// other, or a very short sub shares a significant word with it.
func echoesHeading(sub, heading string) bool {
	a := strings.ToLower(sub)
	b := strings.ToLower(strings.TrimSpace(heading))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	words := strings.Fields(a)
	if len(words) > 2 {
		return false
	}
	for _, w := range words {
		if len(w) >= 4 && strings.Contains(b, w) {
			return true
		}
	}
	return false
}

// titleCaseHeadings rewrites headings that are shouting (>80% of letters
// uppercase) into Title Case.
func titleCaseHeadings(html string) string {
	return headingTagRe.ReplaceAllStringFunc(html, func(m string) string {
		parts := headingTagRe.FindStringSubmatch(m)
		inner := parts[2]
		plain := tagRe.ReplaceAllString(inner, "")
		if !mostlyUpper(plain) {
			return m
		}
		return parts[1] + titleCase(plain) + parts[3]
	})
}

func mostlyUpper(s string) bool {
	var letters, upper int
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
			upper++
		case r >= 'a' && r <= 'z':
			letters++
		}
	}
	return letters > 3 && upper*100 > letters*80
}

var smallWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "but": true,
	"or": true, "for": true, "nor": true, "on": true, "at": true,
	"to": true, "by": true, "in": true, "of": true, "up": true,
	"as": true, "is": true, "it": true, "so": true, "no": true,
	"do": true, "if": true, "my": true, "we": true, "us": true,
}

// titleCase lowercases then capitalizes each word, keeping articles and
// short prepositions lowercase except at the start.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		if i > 0 && smallWords[w] {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
