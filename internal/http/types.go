package http

import (
	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/rag"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Documents int    `json:"documents"`
	Records   int    `json:"records"`
}

// DocumentInfo describes an imported document.
type DocumentInfo struct {
	Name  string            `json:"name"`
	Path  string            `json:"path"`
	Type  document.FileType `json:"type"`
	Pages int               `json:"pages"`
	Size  int64             `json:"size"`
}

func infoFor(f *document.File) DocumentInfo {
	return DocumentInfo{
		Name:  f.Name,
		Path:  f.Path,
		Type:  f.Type,
		Pages: f.PageCount(),
		Size:  f.Size,
	}
}

// ImportRequest is the JSON body of POST /api/v1/documents. Multipart
// uploads use the "file" form field instead.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse is returned by a successful import.
type ImportResponse struct {
	Document DocumentInfo `json:"document"`
	Chunks   int          `json:"chunks"`
}

// ReloadResponse is returned by POST /api/v1/documents/reload.
type ReloadResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// PageResponse is returned by GET /api/v1/documents/:name/pages/:page.
type PageResponse struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Pages    int    `json:"pages"`
	Text     string `json:"text"`
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question string `json:"question"`
	// Document names the document citations are located in. Empty means
	// the latest import.
	Document string `json:"document,omitempty"`
	// FileType overrides the prompt format. Empty uses the document's type.
	FileType document.FileType `json:"file_type,omitempty"`
	Sourcing bool              `json:"sourcing,omitempty"`
	// Stream selects a text/event-stream response.
	Stream bool `json:"stream,omitempty"`
}

// TokenEvent carries one answer fragment on the "token" SSE event.
type TokenEvent struct {
	Text string `json:"text"`
}

// ErrorEvent is sent on the "error" SSE event once streaming has begun.
type ErrorEvent struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// AnswerResponse is the final answer, as JSON or on the "answer" SSE event.
type AnswerResponse struct {
	*rag.Answer
	Document string `json:"document,omitempty"`
}

// CitationsRequest is the body of POST /api/v1/citations.
type CitationsRequest struct {
	Document  string `json:"document"`
	Citations string `json:"citations"`
}

// CitationsResponse lists located spans.
type CitationsResponse struct {
	Document string `json:"document"`
	citation.Result
}
