package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/docmind/internal/chat"
	"github.com/fyrsmithlabs/docmind/internal/chunker"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/embeddings"
	"github.com/fyrsmithlabs/docmind/internal/extraction"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/services"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, rag.ErrNoRelevantContext),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, document.ErrUnsupportedFileType),
		errors.Is(err, chunker.ErrConversion),
		errors.Is(err, rag.ErrEmptyQuestion),
		errors.Is(err, rag.ErrPageOutOfRange),
		errors.Is(err, extraction.ErrNotRegularFile):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, chat.ErrHTTP):
		return http.StatusBadGateway
	case errors.Is(err, embeddings.ErrDisposed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// httpError wraps err for echo's error handler, keeping the cause for logs.
func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(statusFor(err), err.Error()).SetInternal(err)
}
