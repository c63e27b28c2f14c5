package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{MaxChunkSize: 500, Overlap: 50}},
		{name: "no overlap", cfg: Config{MaxChunkSize: 10, Overlap: 0}},
		{name: "overlap equals size", cfg: Config{MaxChunkSize: 10, Overlap: 10}, wantErr: true},
		{name: "negative overlap", cfg: Config{MaxChunkSize: 10, Overlap: -1}, wantErr: true},
		{name: "zero size", cfg: Config{MaxChunkSize: 0, Overlap: 5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWindow_Properties(t *testing.T) {
	tests := []struct {
		name          string
		length        int
		size, overlap int
		wantCount     int
	}{
		{name: "shorter than window", length: 120, size: 500, overlap: 50, wantCount: 1},
		{name: "exactly one window", length: 500, size: 500, overlap: 50, wantCount: 1},
		{name: "one past window", length: 501, size: 500, overlap: 50, wantCount: 2},
		{name: "long text", length: 2000, size: 500, overlap: 50, wantCount: 5},
		{name: "small window", length: 25, size: 10, overlap: 3, wantCount: 4},
		{name: "no overlap", length: 30, size: 10, overlap: 0, wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := makeText(tt.length)
			spans := Window(text, tt.size, tt.overlap)
			require.Len(t, spans, tt.wantCount)

			runes := []rune(text)
			for i, s := range spans {
				n := utf8.RuneCountInString(s.Text)
				assert.LessOrEqual(t, n, tt.size)
				assert.Equal(t, string(runes[s.Start:s.Start+n]), s.Text)

				if i+1 < len(spans) {
					next := spans[i+1]
					assert.Equal(t, tt.overlap, s.Start+n-next.Start, "window %d overlap", i)
				}
			}

			last := spans[len(spans)-1]
			assert.Equal(t, tt.length, last.Start+utf8.RuneCountInString(last.Text))
		})
	}
}

func TestWindow_Empty(t *testing.T) {
	assert.Empty(t, Window("", 500, 50))
}

func TestWindow_CountsRunes(t *testing.T) {
	text := strings.Repeat("文档", 6) // 12 characters, 36 bytes
	spans := Window(text, 5, 1)

	require.Len(t, spans, 3)
	assert.Equal(t, "文档文档文", spans[0].Text)
	assert.Equal(t, 4, spans[1].Start)
	assert.Equal(t, 8, spans[2].Start)
	assert.Equal(t, "文档文档", spans[2].Text)
}

func TestChunker_PlainText(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	text := makeText(1200)
	chunks, err := c.Chunk(document.PlainText, document.Content{Text: text})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Zero(t, ch.Page)
		assert.NotEmpty(t, ch.Text)
	}
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 450, chunks[1].Start)
	assert.Equal(t, 900, chunks[2].Start)
	assert.Equal(t, text[900:], chunks[2].Text)
}

func TestChunker_PlainTextShort(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	chunks, err := c.Chunk(document.PlainText, document.Content{Text: "hello world"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Index: 0, Text: "hello world"}, chunks[0])
}

func TestChunker_Paginated(t *testing.T) {
	c, err := New(Config{MaxChunkSize: 10, Overlap: 2})
	require.NoError(t, err)

	chunks, err := c.Chunk(document.Paginated, document.Content{Pages: map[int]string{
		3: "short",
		1: "abcdefghijklmno",
		2: "   ",
	}})
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Index: 1, Text: "abcdefghij", Page: 1, Start: 0}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, Text: "ijklmno", Page: 1, Start: 8}, chunks[1])
	assert.Equal(t, Chunk{Index: 3, Text: "short", Page: 3, Start: 0}, chunks[2])
}

func TestChunker_ConversionErrors(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		ft      document.FileType
		content document.Content
	}{
		{name: "empty text", ft: document.PlainText, content: document.Content{}},
		{name: "whitespace text", ft: document.PlainText, content: document.Content{Text: " \n\t "}},
		{name: "nil pages", ft: document.Paginated, content: document.Content{}},
		{name: "blank pages", ft: document.Paginated, content: document.Content{Pages: map[int]string{1: "", 2: " "}}},
		{name: "zero page number", ft: document.Paginated, content: document.Content{Pages: map[int]string{0: "text"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := c.Chunk(tt.ft, tt.content)
			assert.ErrorIs(t, err, ErrConversion)
			assert.Nil(t, chunks)
		})
	}
}

func TestChunker_UnsupportedType(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	_, err = c.Chunk(document.FileType(42), document.Content{Text: "x"})
	assert.ErrorIs(t, err, document.ErrUnsupportedFileType)
}

func makeText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}
