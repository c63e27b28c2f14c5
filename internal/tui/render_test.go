package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
)

func bracket(s string) string { return "[" + s + "]" }

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []span
		want  []string
	}{
		{name: "none", text: "ab\ncd", want: []string{"ab", "cd"}},
		{name: "across lines", text: "ab\ncd", spans: []span{{1, 4}}, want: []string{"a[b]", "[c]d"}},
		{name: "overlap merges", text: "abcdef", spans: []span{{0, 3}, {2, 4}}, want: []string{"[abcd]ef"}},
		{name: "clamped", text: "abc", spans: []span{{-2, 9}}, want: []string{"[abc]"}},
		{name: "empty lines kept", text: "a\n\nb", spans: []span{{3, 4}}, want: []string{"a", "", "[b]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, highlight(tt.text, tt.spans, bracket))
		})
	}
}

func TestDisplaySpans(t *testing.T) {
	doc := citation.FromText("ABC\nDEF")
	res := citation.Locate(doc, "CD")

	got := displaySpans(doc, res.Spans)
	assert.Equal(t, []span{{2, 5}}, got)
	assert.Equal(t, []string{"AB[C]", "[D]EF"}, highlight(doc.Render(), got, bracket))
}

func TestWrap(t *testing.T) {
	out, starts := wrap([]string{"a", "b"}, 0)
	assert.Equal(t, "a\nb", out)
	assert.Equal(t, []int{0, 1}, starts)

	_, starts = wrap([]string{"aaaa bbbb", "c", "d"}, 4)
	assert.Equal(t, []int{0, 2, 3}, starts)
}

func TestLineOf(t *testing.T) {
	text := "ab\ncd\nef"
	assert.Equal(t, 0, lineOf(text, 0))
	assert.Equal(t, 0, lineOf(text, 2))
	assert.Equal(t, 1, lineOf(text, 3))
	assert.Equal(t, 2, lineOf(text, 7))
}

func TestPageStarts(t *testing.T) {
	assert.Equal(t, []int{0}, pageStarts(plainFile("a\nb")))
	assert.Equal(t, []int{0, 3, 4}, pageStarts(pagedFile()))

	withBlank := &document.File{Type: document.Paginated, Content: document.Content{Pages: map[int]string{
		1: "a", 2: "", 3: "b",
	}}}
	assert.Equal(t, []int{0, 1, 2}, pageStarts(withBlank))
	assert.Equal(t, "a\n\nb", citation.FromFile(withBlank).Render())
}
