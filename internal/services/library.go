package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/extraction"
)

var (
	// ErrDuplicateDocument is returned when a path is imported twice.
	ErrDuplicateDocument = errors.New("document already imported")

	// ErrDocumentNotFound is returned by Get for unknown names.
	ErrDocumentNotFound = errors.New("document not found")
)

// Importer is the part of rag.Service the library drives.
type Importer interface {
	ImportFile(ctx context.Context, f *document.File) (int, error)
	Reset(ctx context.Context) error
}

// Library tracks imported documents by absolute path, in import order.
// Imports are serialized.
type Library struct {
	mu        sync.Mutex
	importer  Importer
	loader    *extraction.Loader
	uploadDir string
	logger    *zap.Logger

	docs     map[string]*document.File
	order    []string
	onImport []func(*document.File)
}

// NewLibrary creates an empty library. Uploads are written below
// uploadDir; an empty uploadDir creates a temporary one on first use.
func NewLibrary(importer Importer, loader *extraction.Loader, uploadDir string, logger *zap.Logger) *Library {
	if loader == nil {
		loader = extraction.NewLoader(extraction.Config{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		importer:  importer,
		loader:    loader,
		uploadDir: uploadDir,
		logger:    logger,
		docs:      make(map[string]*document.File),
	}
}

// Import extracts the file at path and stores its chunks. It returns the
// document and the number of chunks saved. A path that is already in the
// library fails with ErrDuplicateDocument.
//
// A partial import keeps the document registered, since its saved chunks
// stay in the store.
func (l *Library) Import(ctx context.Context, path string) (*document.File, int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.docs[abs]; ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrDuplicateDocument, abs)
	}

	f, err := l.loader.Load(abs)
	if err != nil {
		return nil, 0, err
	}
	saved, err := l.importer.ImportFile(ctx, f)
	if saved > 0 {
		l.docs[f.Path] = f
		l.order = append(l.order, f.Path)
		for _, fn := range l.onImport {
			fn(f)
		}
	}
	if err != nil {
		return f, saved, err
	}

	l.logger.Info("document imported",
		zap.String("document.name", f.Name),
		zap.String("type", f.Type.String()),
		zap.Int("pages", f.PageCount()),
		zap.Int("chunks", saved))
	return f, saved, nil
}

// OnImport registers fn to run after a document is added to the library.
// fn runs with the library locked and must not call back into it.
func (l *Library) OnImport(fn func(*document.File)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onImport = append(l.onImport, fn)
}

// ImportUpload writes r to the upload directory under the base of name and
// imports it.
func (l *Library) ImportUpload(ctx context.Context, name string, r io.Reader) (*document.File, int, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || strings.HasPrefix(base, ".") {
		return nil, 0, fmt.Errorf("%w: invalid upload name %q", document.ErrUnsupportedFileType, name)
	}
	if !extraction.Supported(base) {
		return nil, 0, fmt.Errorf("%w: %s", document.ErrUnsupportedFileType, base)
	}

	dir, err := l.uploads()
	if err != nil {
		return nil, 0, err
	}
	path := filepath.Join(dir, base)
	if l.Has(path) {
		return nil, 0, fmt.Errorf("%w: %s", ErrDuplicateDocument, base)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, 0, fmt.Errorf("saving upload: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return nil, 0, fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, 0, fmt.Errorf("saving upload: %w", err)
	}
	return l.Import(ctx, path)
}

func (l *Library) uploads() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.uploadDir == "" {
		dir, err := os.MkdirTemp("", "docmind-uploads-")
		if err != nil {
			return "", fmt.Errorf("creating upload directory: %w", err)
		}
		l.uploadDir = dir
	}
	if err := os.MkdirAll(l.uploadDir, 0o700); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}
	return l.uploadDir, nil
}

// Has reports whether path is in the library.
func (l *Library) Has(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.docs[abs]
	return ok
}

// Get looks a document up by path or by file name. When several documents
// share a name, the latest import wins.
func (l *Library) Get(name string) (*document.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.docs[name]; ok {
		return f, nil
	}
	for i := len(l.order) - 1; i >= 0; i-- {
		if f := l.docs[l.order[i]]; f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
}

// Latest returns the most recent import, or nil.
func (l *Library) Latest() *document.File {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return nil
	}
	return l.docs[l.order[len(l.order)-1]]
}

// List returns the documents in import order.
func (l *Library) List() []*document.File {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*document.File, 0, len(l.order))
	for _, p := range l.order {
		out = append(out, l.docs[p])
	}
	return out
}

// Paths returns the absolute paths in import order.
func (l *Library) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Reload clears the store and imports every document again from disk.
// Files that fail to load are dropped from the library; the first error is
// returned after all files are tried.
func (l *Library) Reload(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.importer.Reset(ctx); err != nil {
		return 0, fmt.Errorf("resetting store: %w", err)
	}

	var (
		total    int
		firstErr error
		kept     = l.order[:0]
	)
	for _, p := range l.order {
		f, err := l.loader.Load(p)
		if err == nil {
			var n int
			n, err = l.importer.ImportFile(ctx, f)
			total += n
			if n > 0 {
				l.docs[p] = f
				kept = append(kept, p)
			}
		}
		if err != nil {
			l.logger.Warn("re-import failed", zap.String("path", p), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("re-importing %s: %w", p, err)
			}
			if !slices.Contains(kept, p) {
				delete(l.docs, p)
			}
		}
	}
	l.order = kept
	return total, firstErr
}
