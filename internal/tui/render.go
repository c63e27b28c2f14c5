package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
)

// span is a half-open rune range of the rendered document.
type span struct{ from, to int }

// displaySpans converts located citations into rune ranges of d.Render().
func displaySpans(d *citation.Document, spans []citation.Span) []span {
	out := make([]span, 0, len(spans))
	for _, s := range spans {
		out = append(out, span{from: d.DisplayOffset(s.From), to: d.DisplayOffset(s.To)})
	}
	return out
}

// highlight applies mark to every run of runes covered by spans. Runs are
// marked per line so that wrapped output keeps its layout.
func highlight(text string, spans []span, mark func(string) string) []string {
	runes := []rune(text)
	mask := make([]bool, len(runes))
	for _, s := range spans {
		from, to := max(s.from, 0), min(s.to, len(runes))
		for i := from; i < to; i++ {
			mask[i] = true
		}
	}

	var (
		lines []string
		line  strings.Builder
		start int
	)
	flush := func(end int) {
		seg := string(runes[start:end])
		if seg != "" {
			if mask[start] {
				seg = mark(seg)
			}
			line.WriteString(seg)
		}
		start = end
	}
	for i, r := range runes {
		if r == '\n' {
			flush(i)
			lines = append(lines, line.String())
			line.Reset()
			start = i + 1
			continue
		}
		if i > start && mask[i] != mask[i-1] {
			flush(i)
		}
	}
	flush(len(runes))
	return append(lines, line.String())
}

// wrap soft-wraps lines to width. starts[i] is the output line on which
// source line i begins.
func wrap(lines []string, width int) (string, []int) {
	starts := make([]int, len(lines))
	if width <= 0 {
		for i := range lines {
			starts[i] = i
		}
		return strings.Join(lines, "\n"), starts
	}

	style := lipgloss.NewStyle().Width(width)
	out := make([]string, 0, len(lines))
	row := 0
	for i, l := range lines {
		starts[i] = row
		w := style.Render(l)
		out = append(out, w)
		row += lipgloss.Height(w)
	}
	return strings.Join(out, "\n"), starts
}

// lineOf returns the source line containing rune offset off of text.
func lineOf(text string, off int) int {
	line := 0
	for i, r := range []rune(text) {
		if i >= off {
			break
		}
		if r == '\n' {
			line++
		}
	}
	return line
}

// pageStarts returns the first rendered line of every page of f, in page
// order. Plain text is a single page starting at line 0.
func pageStarts(f *document.File) []int {
	if f.Type != document.Paginated {
		return []int{0}
	}
	nums := f.Content.PageNumbers()
	starts := make([]int, len(nums))
	line := 0
	for i, n := range nums {
		starts[i] = line
		line += strings.Count(citation.FromText(f.Content.Pages[n]).Render(), "\n") + 1
	}
	return starts
}
