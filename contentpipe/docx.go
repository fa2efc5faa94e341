package contentpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	stdhtml "html"
	"io"
	"regexp"
	"strings"
)

// maxXMLDepth guards the DOCX XML walk against nesting bombs.
const maxXMLDepth = 256

// defaultDocxStyles maps Word paragraph style names (spacing and case
// folded) to the heading tags the splitter recognizes.
var defaultDocxStyles = map[string]string{
	"title":    "h1",
	"heading1": "h1",
	"heading2": "h2",
}

// recoverDocx converts a DOCX manuscript to style-aware HTML, then splits
// it into sections on h1/h2 boundaries. Content before the first heading
// becomes "Front Matter" when longer than 50 characters; a document with no
// headings at all becomes a single "Full Text" section.
func (p *Pipeline) recoverDocx(data []byte) ([]rawSection, error) {
	htmlDoc, err := convertDocxHTML(data, defaultDocxStyles)
	if err != nil {
		return nil, err
	}

	sections := splitHTMLOnHeadings(htmlDoc)
	if len(sections) == 0 {
		text := htmlToText(htmlDoc)
		if text == "" {
			return nil, nil
		}
		return []rawSection{{Heading: "Full Text", Text: text, HTML: htmlDoc}}, nil
	}
	return sections, nil
}

// convertDocxHTML reads word/document.xml from the ZIP archive and emits
// one HTML element per paragraph, mapping paragraph styles to tags via
// styles (default tag is p).
func convertDocxHTML(data []byte, styles map[string]string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	var text strings.Builder
	var inParagraph bool
	var style string
	depth := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", fmt.Errorf("document.xml: nesting depth exceeds %d", maxXMLDepth)
			}
			switch t.Name.Local {
			case "p":
				inParagraph = true
				text.Reset()
				style = ""
			case "pStyle":
				if inParagraph {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							style = attr.Value
						}
					}
				}
			case "br", "tab":
				if inParagraph {
					text.WriteByte(' ')
				}
			}

		case xml.CharData:
			if inParagraph {
				text.Write(t)
			}

		case xml.EndElement:
			depth--
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				content := strings.TrimSpace(text.String())
				if content == "" {
					continue
				}
				tag := styles[foldStyleName(style)]
				if tag == "" {
					tag = "p"
				}
				sb.WriteString("<" + tag + ">")
				sb.WriteString(stdhtml.EscapeString(content))
				sb.WriteString("</" + tag + ">\n")
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// foldStyleName normalizes a Word style name for lookup: "Heading 1",
// "heading1", and "Heading1" all fold to "heading1".
func foldStyleName(style string) string {
	return strings.ReplaceAll(strings.ToLower(style), " ", "")
}

var docxHeadingRe = regexp.MustCompile(`(?is)<h[12][^>]*>(.*?)</h[12]>`)

// splitHTMLOnHeadings cuts HTML into sections at every h1/h2: each run from
// one heading (inclusive) to the next (exclusive) becomes a section.
func splitHTMLOnHeadings(doc string) []rawSection {
	matches := docxHeadingRe.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return nil
	}

	var sections []rawSection
	for i, m := range matches {
		heading := htmlToText(doc[m[2]:m[3]])
		end := len(doc)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		chunk := doc[m[0]:end]
		sections = append(sections, rawSection{
			Heading: cleanHeading(heading),
			Text:    htmlToText(chunk),
			HTML:    strings.TrimSpace(chunk),
		})
	}

	// Preamble before the first heading becomes front matter.
	if preamble := strings.TrimSpace(doc[:matches[0][0]]); len(preamble) > 50 {
		sections = append([]rawSection{{
			Heading: "Front Matter",
			Text:    htmlToText(preamble),
			HTML:    preamble,
		}}, sections...)
	}

	return sections
}
