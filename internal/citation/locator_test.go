package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "single", in: "one sentence.", want: []string{"one sentence."}},
		{name: "trimmed", in: "  a |||  b  ", want: []string{"a", "b"}},
		{name: "drops empties", in: "|||a||| |||b|||", want: []string{"a", "b"}},
		{name: "empty", in: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestLocate_AcrossLineBreak(t *testing.T) {
	doc := FromText("ABC\nDEF")

	p := Project(doc)
	assert.Equal(t, "ABCDEF", p.Text())

	res := Locate(doc, "ABCDEF")
	require.Len(t, res.Spans, 1)
	span := res.Spans[0]
	assert.Equal(t, 0, span.Start)
	assert.Equal(t, 6, span.End)
	assert.Equal(t, Position{Node: 0, Offset: 0}, span.From)
	// Node 1 is the paragraph break; "DEF" is node 2.
	assert.Equal(t, Position{Node: 2, Offset: 3}, span.To)

	require.NotNil(t, res.First)
	assert.Equal(t, Position{Node: 0, Offset: 0}, *res.First)
}

func TestLocate_FirstOccurrence(t *testing.T) {
	doc := FromText("hello world, hello again")

	res := Locate(doc, "hello|||hello")
	require.Len(t, res.Spans, 1)
	assert.Equal(t, 0, res.Spans[0].Start)
	assert.Equal(t, 5, res.Spans[0].End)
}

func TestLocate_CitationOrder(t *testing.T) {
	doc := FromText("First point.\nSecond point.\nThird point.")

	res := Locate(doc, "Third point. ||| missing sentence ||| First point.")
	require.Len(t, res.Spans, 2)
	assert.Equal(t, "Third point.", res.Spans[0].Text)
	assert.Equal(t, "First point.", res.Spans[1].Text)

	require.NotNil(t, res.First)
	assert.Equal(t, res.Spans[0].From, *res.First)
}

func TestLocate_CaseSensitive(t *testing.T) {
	res := Locate(FromText("Hello"), "hello")
	assert.Empty(t, res.Spans)
	assert.Nil(t, res.First)
}

func TestLocate_RuneOffsets(t *testing.T) {
	doc := FromText("页码一\r\n合同金额为一百万元。")

	res := Locate(doc, "合同金额")
	require.Len(t, res.Spans, 1)
	assert.Equal(t, 3, res.Spans[0].Start)
	assert.Equal(t, 7, res.Spans[0].End)
	assert.Equal(t, Position{Node: 2, Offset: 0}, res.Spans[0].From)
}

func TestLocate_EmptyDocument(t *testing.T) {
	res := Locate(&Document{}, "anything")
	assert.Empty(t, res.Spans)
	assert.Nil(t, res.First)
}

func TestProjection_Position(t *testing.T) {
	doc := &Document{Nodes: []Node{
		{Kind: Text, Text: "ab"},
		{Kind: LineBreak},
		{Kind: Text, Text: "c\r"},
	}}
	p := Project(doc)
	assert.Equal(t, "abc", p.Text())
	assert.Equal(t, 3, p.Len())

	tests := []struct {
		offset int
		want   Position
		ok     bool
	}{
		{offset: 0, want: Position{Node: 0, Offset: 0}, ok: true},
		{offset: 1, want: Position{Node: 0, Offset: 1}, ok: true},
		{offset: 2, want: Position{Node: 2, Offset: 0}, ok: true},
		{offset: 3, want: Position{Node: 2, Offset: 1}, ok: true},
		{offset: 4, ok: false},
		{offset: -1, ok: false},
	}
	for _, tt := range tests {
		got, ok := p.Position(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		if tt.ok {
			assert.Equal(t, tt.want, got, "offset %d", tt.offset)
		}
	}

	_, ok := Project(&Document{}).Position(0)
	assert.False(t, ok)
}

func TestFromPages(t *testing.T) {
	doc := FromPages(map[int]string{2: "second", 1: "first\nline"})

	assert.Equal(t, "first\nline\nsecond", doc.Render())
	assert.Equal(t, "firstlinesecond", Project(doc).Text())
}

func TestFromFile(t *testing.T) {
	plain := &document.File{Type: document.PlainText, Content: document.Content{Text: "a\r\nb"}}
	assert.Equal(t, "a\nb", FromFile(plain).Render())

	paged := &document.File{Type: document.Paginated, Content: document.Content{Pages: map[int]string{1: "p1", 2: "p2"}}}
	assert.Equal(t, "p1\np2", FromFile(paged).Render())
}

func TestFromText_SoftBreaks(t *testing.T) {
	doc := FromText("a\vb")
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, LineBreak, doc.Nodes[1].Kind)
	assert.Equal(t, "ab", Project(doc).Text())
}

func TestDocument_DisplayOffset(t *testing.T) {
	doc := FromText("ABC\nDEF")
	res := Locate(doc, "CD")
	require.Len(t, res.Spans, 1)

	rendered := []rune(doc.Render())
	from := doc.DisplayOffset(res.Spans[0].From)
	to := doc.DisplayOffset(res.Spans[0].To)
	assert.Equal(t, "C\nD", string(rendered[from:to]))
}
