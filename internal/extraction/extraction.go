// Package extraction loads documents from disk as plain text or as a
// page-number to text mapping.
//
// Plain text and Markdown become document.PlainText; Word, PDF, PowerPoint
// and Excel files become document.Paginated, with pages taken from explicit
// page breaks, PDF pages, slides and sheets respectively.
package extraction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

// DefaultMaxFileSize bounds the size of a document accepted by Load.
const DefaultMaxFileSize = 50 << 20

var (
	// ErrTooLarge indicates a file above the configured size limit.
	ErrTooLarge = errors.New("document too large")

	// ErrNotRegularFile indicates a path that is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

type extractor func(path string) (document.Content, error)

// extractors maps lower-case extensions to their reader. Every entry must
// also be known to document.TypeForName.
var extractors = map[string]extractor{
	".txt":      extractText,
	".md":       extractMarkdown,
	".markdown": extractMarkdown,
	".docx":     extractDOCX,
	".pdf":      extractPDF,
	".pptx":     extractPPTX,
	".xlsx":     extractXLSX,
}

// Config holds loader configuration.
type Config struct {
	MaxFileSize int64 `koanf:"max_file_size"`
}

// Loader reads documents subject to a size limit.
type Loader struct {
	maxSize int64
}

// NewLoader creates a Loader. A zero MaxFileSize uses DefaultMaxFileSize.
func NewLoader(cfg Config) *Loader {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Loader{maxSize: cfg.MaxFileSize}
}

// Load reads path with the default size limit.
func Load(path string) (*document.File, error) {
	return NewLoader(Config{}).Load(path)
}

// Supported reports whether path has an extension Load can read.
func Supported(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads and converts the document at path.
func (l *Loader) Load(path string) (*document.File, error) {
	ft, err := document.TypeForName(path)
	if err != nil {
		return nil, err
	}
	extract, ok := extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFileType, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if info.Size() > l.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), l.maxSize)
	}

	content, err := extract(path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &document.File{
		Name:    filepath.Base(path),
		Path:    abs,
		Type:    ft,
		Size:    info.Size(),
		Content: content,
	}, nil
}

// cleanPage strips form feeds and surrounding whitespace from page text.
func cleanPage(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\f", ""))
}

// pagesFrom numbers texts from 1. An empty input yields a single empty page
// so paginated content is never a nil map.
func pagesFrom(texts []string) map[int]string {
	pages := make(map[int]string, max(len(texts), 1))
	for i, t := range texts {
		pages[i+1] = cleanPage(t)
	}
	if len(pages) == 0 {
		pages[1] = ""
	}
	return pages
}
