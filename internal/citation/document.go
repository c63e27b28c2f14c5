// Package citation relocates model-extracted citation sentences inside a
// rendered document.
package citation

import (
	"strings"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

// NodeKind is the type of a structural node.
type NodeKind int

const (
	// Text holds visible characters.
	Text NodeKind = iota
	// LineBreak is a soft break inside a paragraph.
	LineBreak
	// ParagraphBreak ends a paragraph.
	ParagraphBreak
)

func (k NodeKind) String() string {
	switch k {
	case Text:
		return "text"
	case LineBreak:
		return "line_break"
	case ParagraphBreak:
		return "paragraph_break"
	default:
		return "unknown"
	}
}

// Node is one element of a rendered document.
type Node struct {
	Kind NodeKind `json:"kind"`
	// Text is set for Text nodes only.
	Text string `json:"text,omitempty"`
}

// Document is a rendered document as an ordered list of nodes.
type Document struct {
	Nodes []Node `json:"nodes"`
}

// FromText renders plain text with one paragraph per line. Trailing "\r" is
// trimmed and vertical tabs become line breaks.
func FromText(text string) *Document {
	d := &Document{}
	d.appendLines(text)
	return d
}

// FromPages renders pages in ascending page order, one paragraph per line.
func FromPages(pages map[int]string) *Document {
	content := document.Content{Pages: pages}
	d := &Document{}
	for i, page := range content.PageNumbers() {
		if i > 0 {
			d.Nodes = append(d.Nodes, Node{Kind: ParagraphBreak})
		}
		d.appendLines(pages[page])
	}
	return d
}

// FromFile renders a loaded file according to its type.
func FromFile(f *document.File) *Document {
	if f.Type == document.Paginated {
		return FromPages(f.Content.Pages)
	}
	return FromText(f.Content.Text)
}

func (d *Document) appendLines(text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			d.Nodes = append(d.Nodes, Node{Kind: ParagraphBreak})
		}
		line = strings.TrimSuffix(line, "\r")
		for j, part := range strings.Split(line, "\v") {
			if j > 0 {
				d.Nodes = append(d.Nodes, Node{Kind: LineBreak})
			}
			if part != "" {
				d.Nodes = append(d.Nodes, Node{Kind: Text, Text: part})
			}
		}
	}
}

// Render returns the display text, with both break kinds shown as "\n".
func (d *Document) Render() string {
	var b strings.Builder
	for _, n := range d.Nodes {
		if n.Kind == Text {
			b.WriteString(n.Text)
		} else {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// DisplayOffset converts a structural position into a rune offset within
// Render's output.
func (d *Document) DisplayOffset(p Position) int {
	offset := 0
	for i, n := range d.Nodes {
		if i == p.Node {
			return offset + p.Offset
		}
		if n.Kind == Text {
			offset += len([]rune(n.Text))
		} else {
			offset++
		}
	}
	return offset
}
