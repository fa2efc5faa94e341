package contentpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// epubContainer models META-INF/container.xml, which locates the OPF.
type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// epubPackage models the OPF package document: the manifest maps item IDs
// to file paths, the spine lists item references in reading order.
type epubPackage struct {
	XMLName  xml.Name `xml:"package"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// recoverEPUB walks the EPUB container to its spine and emits one section
// per spine item. Spine order is the authoritative reading order and is
// never re-sorted. Items with fewer than 5 words (cover pages, blanks) are
// dropped.
func (p *Pipeline) recoverEPUB(data []byte) ([]rawSection, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	containerData, err := readZipFile(zr, "META-INF/container.xml")
	if err != nil {
		return nil, fmt.Errorf("invalid epub: missing META-INF/container.xml")
	}
	var container epubContainer
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return nil, fmt.Errorf("invalid epub: parse container.xml: %w", err)
	}
	if len(container.RootFiles) == 0 || container.RootFiles[0].FullPath == "" {
		return nil, fmt.Errorf("invalid epub: container.xml has no rootfile")
	}

	opfPath := container.RootFiles[0].FullPath
	opfData, err := readZipFile(zr, opfPath)
	if err != nil {
		return nil, fmt.Errorf("invalid epub: missing OPF at %s", opfPath)
	}
	var pkg epubPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("invalid epub: parse OPF: %w", err)
	}

	opfDir := path.Dir(opfPath)
	if opfDir == "." {
		opfDir = ""
	}

	manifest := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		manifest[item.ID] = item.Href
	}

	var sections []rawSection
	for _, ref := range pkg.Spine.ItemRefs {
		href := manifest[ref.IDRef]
		if href == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		docData, err := readZipFile(zr, path.Join(opfDir, href))
		if err != nil {
			continue
		}
		sec, ok := epubSpineSection(docData, len(sections)+1)
		if !ok {
			continue
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// readZipFile returns the contents of a file inside the archive by path.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found in archive: %s", name)
}

// epubSpineSection converts one spine item's XHTML into a raw section.
// The heading comes from the first h1-h3, then the document title, then a
// positional placeholder. Returns ok=false for near-empty items.
func epubSpineSection(data []byte, position int) (rawSection, bool) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return rawSection{}, false
	}

	heading := firstHeadingText(doc)
	if heading == "" {
		heading = htmlTitleText(doc)
	}
	if heading == "" {
		heading = fmt.Sprintf("Section %d", position)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		body = doc
	}
	stripElements(body, map[atom.Atom]bool{atom.Script: true, atom.Style: true})

	text := collectText(body)
	if countWords(text) < 5 {
		return rawSection{}, false
	}

	return rawSection{
		Heading: cleanHeading(heading),
		Text:    text,
		HTML:    renderChildren(body),
	}, true
}

// findElement returns the first element with the given atom, depth-first.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// firstHeadingText returns the text of the first h1, h2, or h3 element.
func firstHeadingText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3:
			return collectText(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstHeadingText(c); t != "" {
			return t
		}
	}
	return ""
}

// htmlTitleText extracts the <title> text.
func htmlTitleText(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := htmlTitleText(c); t != "" {
			return t
		}
	}
	return ""
}

// stripElements removes matching elements from the subtree in place.
func stripElements(n *html.Node, drop map[atom.Atom]bool) {
	var doomed []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && drop[c.DataAtom] {
			doomed = append(doomed, c)
			continue
		}
		stripElements(c, drop)
	}
	for _, d := range doomed {
		n.RemoveChild(d)
	}
}

// collectText extracts all text from a node subtree, space-joined, skipping
// script and style blocks.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// renderChildren serializes the children of a node back to HTML.
func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return strings.TrimSpace(sb.String())
}

// htmlToText parses an HTML fragment and returns its plain text.
func htmlToText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return collectText(doc)
}
