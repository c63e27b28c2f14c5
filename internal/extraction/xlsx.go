package extraction

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

// extractXLSX treats every sheet as a page: one line per row, cells
// separated by tabs.
func extractXLSX(path string) (document.Content, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return document.Content{}, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	texts := make([]string, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return document.Content{}, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		texts = append(texts, b.String())
	}
	return document.Content{Pages: pagesFrom(texts)}, nil
}
