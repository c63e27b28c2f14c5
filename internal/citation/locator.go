package citation

import (
	"strings"
	"unicode/utf8"
)

// Separator delimits citation sentences in model output.
const Separator = "|||"

// Span is a half-open rune range [Start, End) in a projection.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	// From and To are the structural positions of Start and End.
	From Position `json:"from"`
	To   Position `json:"to"`
}

// Result holds the located spans in citation order.
type Result struct {
	Spans []Span `json:"spans"`
	// First is where the viewer should scroll, or nil when nothing matched.
	First *Position `json:"first,omitempty"`
}

// Split breaks raw model output into trimmed, non-empty sentences.
func Split(citations string) []string {
	parts := strings.Split(citations, Separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Locate finds each citation sentence in d. Every sentence resolves to its
// first occurrence, so a repeated sentence yields one span. Sentences that
// do not occur are skipped.
func Locate(d *Document, citations string) Result {
	return LocateIn(Project(d), citations)
}

// LocateIn is Locate over a prebuilt projection.
func LocateIn(p *Projection, citations string) Result {
	res := Result{Spans: []Span{}}
	seen := make(map[string]bool)
	for _, sentence := range Split(citations) {
		if seen[sentence] {
			continue
		}
		seen[sentence] = true

		start := p.Find(sentence)
		if start < 0 {
			continue
		}
		end := start + utf8.RuneCountInString(sentence)
		from, _ := p.Position(start)
		to, _ := p.Position(end)
		res.Spans = append(res.Spans, Span{
			Start: start,
			End:   end,
			Text:  sentence,
			From:  from,
			To:    to,
		})
	}
	if len(res.Spans) > 0 {
		first := res.Spans[0].From
		res.First = &first
	}
	return res
}
