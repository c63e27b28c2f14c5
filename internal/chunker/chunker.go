// Package chunker splits document content into bounded, overlapping,
// position-tagged chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

const (
	// DefaultMaxChunkSize is the window size in characters.
	DefaultMaxChunkSize = 500
	// DefaultOverlap is the number of characters shared by consecutive chunks.
	DefaultOverlap = 50
)

// ErrConversion indicates the source content could not be converted into
// chunks for the selected file type (blank text, missing pages).
var ErrConversion = errors.New("content conversion failed")

// ErrInvalidConfig indicates invalid chunker configuration.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is a positioned slice of document text.
type Chunk struct {
	// Index is sequential for plain text and equals Page for paginated text.
	Index int
	// Text is never empty.
	Text string
	// Page is the 1-indexed page number, or 0 for plain text.
	Page int
	// Start is the character offset of Text within its page or document.
	Start int
}

// Config holds chunker configuration.
type Config struct {
	MaxChunkSize int `koanf:"max_chunk_size"`
	Overlap      int `koanf:"overlap"`
}

// Validate checks the window parameters.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be > 0, got %d", ErrInvalidConfig, c.MaxChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, c.MaxChunkSize, c.Overlap)
	}
	return nil
}

type strategy func(content document.Content) ([]Chunk, error)

// Chunker dispatches to a strategy per file type.
type Chunker struct {
	cfg        Config
	strategies map[document.FileType]strategy
}

// New creates a Chunker. A zero Config uses the defaults.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxChunkSize == 0 && cfg.Overlap == 0 {
		cfg = Config{MaxChunkSize: DefaultMaxChunkSize, Overlap: DefaultOverlap}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Chunker{cfg: cfg}
	c.strategies = map[document.FileType]strategy{
		document.PlainText: c.chunkText,
		document.Paginated: c.chunkPages,
	}
	return c, nil
}

// Chunk splits content according to the strategy registered for ft.
func (c *Chunker) Chunk(ft document.FileType, content document.Content) ([]Chunk, error) {
	s, ok := c.strategies[ft]
	if !ok {
		return nil, fmt.Errorf("%w: %v", document.ErrUnsupportedFileType, ft)
	}
	return s(content)
}

func (c *Chunker) chunkText(content document.Content) ([]Chunk, error) {
	if strings.TrimSpace(content.Text) == "" {
		return nil, fmt.Errorf("%w: text content is empty", ErrConversion)
	}

	windows := Window(content.Text, c.cfg.MaxChunkSize, c.cfg.Overlap)
	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = Chunk{Index: i, Text: w.Text, Start: w.Start}
	}
	return chunks, nil
}

// chunkPages never overlaps across a page boundary so every chunk keeps an
// accurate page attribution.
func (c *Chunker) chunkPages(content document.Content) ([]Chunk, error) {
	if len(content.Pages) == 0 {
		return nil, fmt.Errorf("%w: page content is empty", ErrConversion)
	}

	var chunks []Chunk
	for _, page := range content.PageNumbers() {
		if page <= 0 {
			return nil, fmt.Errorf("%w: invalid page number %d", ErrConversion, page)
		}
		text := content.Pages[page]
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, w := range Window(text, c.cfg.MaxChunkSize, c.cfg.Overlap) {
			chunks = append(chunks, Chunk{Index: page, Text: w.Text, Page: page, Start: w.Start})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: every page is blank", ErrConversion)
	}
	return chunks, nil
}

// Span is one window produced by Window.
type Span struct {
	Start int
	Text  string
}

// Window slides a window of size characters over text, stepping back
// overlap characters after each window, and stops once a window reaches
// the end. Offsets and sizes count runes. Callers guarantee
// 0 <= overlap < size.
func Window(text string, size, overlap int) []Span {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var spans []Span
	pos := 0
	for {
		n := min(size, total-pos)
		spans = append(spans, Span{Start: pos, Text: string(runes[pos : pos+n])})
		if pos+n >= total {
			break
		}
		pos = max(pos+n-overlap, 0)
	}
	return spans
}
