package rag

import "fmt"

// ValidatePage checks a page-jump request against a document's page count.
func ValidatePage(page, pageCount int) error {
	if page < 1 || page > pageCount {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, pageCount)
	}
	return nil
}
