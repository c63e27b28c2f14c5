package citation

import (
	"strings"
	"unicode/utf8"
)

// Position addresses a rune inside a document node.
type Position struct {
	Node   int `json:"node"`
	Offset int `json:"offset"`
}

// Projection is the normalized text of a document: every visible rune in
// display order with "\r" and "\n" removed, plus the structural position of
// each rune.
type Projection struct {
	text      string
	positions []Position
	// end is the position just past the last projected rune.
	end Position
}

// Project builds the projection of d in one pass over its nodes.
func Project(d *Document) *Projection {
	var b strings.Builder
	p := &Projection{}

	for i, n := range d.Nodes {
		if n.Kind != Text {
			continue
		}
		offset := 0
		for _, r := range n.Text {
			if r != '\r' && r != '\n' {
				b.WriteRune(r)
				p.positions = append(p.positions, Position{Node: i, Offset: offset})
				p.end = Position{Node: i, Offset: offset + 1}
			}
			offset++
		}
	}

	p.text = b.String()
	return p
}

// Text returns the normalized text.
func (p *Projection) Text() string { return p.text }

// Len returns the number of runes in the projection.
func (p *Projection) Len() int { return len(p.positions) }

// Position maps a rune offset in [0, Len()] back to a structural position.
// Len() maps to the position just past the last rune. ok is false when
// offset is out of range or the projection is empty.
func (p *Projection) Position(offset int) (pos Position, ok bool) {
	switch {
	case len(p.positions) == 0, offset < 0, offset > len(p.positions):
		return Position{}, false
	case offset == len(p.positions):
		return p.end, true
	default:
		return p.positions[offset], true
	}
}

// Find returns the rune offset of the first occurrence of s, or -1.
// Matching is exact and case-sensitive.
func (p *Projection) Find(s string) int {
	if s == "" {
		return -1
	}
	i := strings.Index(p.text, s)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(p.text[:i])
}
