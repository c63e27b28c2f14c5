package extraction

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

// pageSource is a document with numbered pages.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

func (p pdfPages) PageText(num int) (string, error) {
	page := p.r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func extractPDF(path string) (content document.Content, err error) {
	f, err := os.Open(path)
	if err != nil {
		return document.Content{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return document.Content{}, err
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return document.Content{}, fmt.Errorf("opening pdf: %w", err)
	}
	pages, err := collectPages(pdfPages{r: reader})
	if err != nil {
		return document.Content{}, err
	}
	return document.Content{Pages: pages}, nil
}

func collectPages(src pageSource) (map[int]string, error) {
	n := src.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := src.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return pagesFrom(texts), nil
}
