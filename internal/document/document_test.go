package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeForName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    FileType
		wantErr bool
	}{
		{name: "txt", file: "a.txt", want: PlainText},
		{name: "upper case extension", file: "NOTES.TXT", want: PlainText},
		{name: "markdown", file: "readme.md", want: PlainText},
		{name: "docx", file: "report.docx", want: Paginated},
		{name: "pdf", file: "/tmp/x/paper.pdf", want: Paginated},
		{name: "slides", file: "deck.pptx", want: Paginated},
		{name: "spreadsheet", file: "budget.xlsx", want: Paginated},
		{name: "unknown", file: "image.png", wantErr: true},
		{name: "no extension", file: "Makefile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeForName(tt.file)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFileType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileType_TextRoundTrip(t *testing.T) {
	for _, ft := range FileTypes {
		text, err := ft.MarshalText()
		require.NoError(t, err)

		var parsed FileType
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, ft, parsed)
	}

	_, err := FileType(99).MarshalText()
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestFile_Display(t *testing.T) {
	f := &File{
		Type: Paginated,
		Content: Content{Pages: map[int]string{
			2: "second",
			1: "first",
			3: "third",
		}},
	}
	assert.Equal(t, "first\nsecond\nthird", f.Display())
	assert.Equal(t, 3, f.PageCount())

	plain := &File{Type: PlainText, Content: Content{Text: "hello"}}
	assert.Equal(t, "hello", plain.Display())
	assert.Equal(t, 1, plain.PageCount())
}
