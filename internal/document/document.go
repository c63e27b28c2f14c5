// Package document defines the file model shared by extraction, chunking and retrieval.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFileType indicates a file type no strategy is registered for.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// FileType selects the chunking strategy and prompt template for a document.
type FileType int

const (
	// PlainText documents are a single flat string.
	PlainText FileType = iota + 1
	// Paginated documents are a page-number to text mapping (1-indexed).
	Paginated
)

// FileTypes lists every variant. Startup validation iterates it.
var FileTypes = []FileType{PlainText, Paginated}

func (t FileType) String() string {
	switch t {
	case PlainText:
		return "plain_text"
	case Paginated:
		return "paginated"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is a known variant.
func (t FileType) Valid() bool {
	return t == PlainText || t == Paginated
}

// ParseFileType parses the String form of a FileType.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain_text", "plaintext", "text", "txt":
		return PlainText, nil
	case "paginated", "pages":
		return Paginated, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFileType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t FileType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFileType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FileType) UnmarshalText(text []byte) error {
	parsed, err := ParseFileType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// extensionTypes maps lower-case file extensions to file types.
var extensionTypes = map[string]FileType{
	".txt":      PlainText,
	".md":       PlainText,
	".markdown": PlainText,
	".docx":     Paginated,
	".pdf":      Paginated,
	".pptx":     Paginated,
	".xlsx":     Paginated,
}

// TypeForName returns the file type for a file name based on its extension.
func TypeForName(name string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFileType, name)
}

// Content is the extracted text of a document. Exactly one of Text or
// Pages is meaningful, depending on the file type.
type Content struct {
	Text  string
	Pages map[int]string
}

// File is a loaded document.
type File struct {
	Name    string
	Path    string
	Type    FileType
	Size    int64
	Content Content
}

// PageCount returns the number of pages, or 1 for plain text.
func (f *File) PageCount() int {
	if f.Type != Paginated {
		return 1
	}
	return len(f.Content.Pages)
}

// PageNumbers returns the page numbers in ascending order.
func (c Content) PageNumbers() []int {
	nums := make([]int, 0, len(c.Pages))
	for n := range c.Pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Display returns the document text as rendered to a reader: the plain
// text, or every page in order separated by a newline.
func (f *File) Display() string {
	if f.Type != Paginated {
		return f.Content.Text
	}
	nums := f.Content.PageNumbers()
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		parts = append(parts, f.Content.Pages[n])
	}
	return strings.Join(parts, "\n")
}
