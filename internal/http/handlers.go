package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/logging"
	"github.com/fyrsmithlabs/docmind/internal/rag"
)

// handleHealth reports document and record counts. A store that cannot be
// read makes the service unavailable.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Documents: len(s.reg.Library().List()),
	}
	n, err := s.reg.Store().Count(c.Request().Context())
	if err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		resp.Status = "degraded"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Records = n
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs := s.reg.Library().List()
	out := make([]DocumentInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, infoFor(d))
	}
	return c.JSON(http.StatusOK, out)
}

// handleImport accepts either {"path": ...} or a multipart "file" upload.
func (s *Server) handleImport(c echo.Context) error {
	ctx := c.Request().Context()
	lib := s.reg.Library()

	var (
		f   *document.File
		n   int
		err error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
		}
		src, ferr := fh.Open()
		if ferr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "reading upload").SetInternal(ferr)
		}
		defer src.Close()
		f, n, err = lib.ImportUpload(ctx, fh.Filename, src)
	} else {
		var req ImportRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(req.Path) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
		}
		f, n, err = lib.Import(ctx, req.Path)
	}
	if err != nil {
		s.logger.Warn("import failed", zap.Int("saved", n), zap.Error(err))
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ImportResponse{Document: infoFor(f), Chunks: n})
}

func (s *Server) handleReload(c echo.Context) error {
	n, err := s.reg.Library().Reload(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ReloadResponse{Documents: len(s.reg.Library().List()), Chunks: n})
}

// handlePage returns one page of a paginated document, or the whole text
// as page 1 of a plain one.
func (s *Server) handlePage(c echo.Context) error {
	doc, err := s.reg.Library().Get(c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be an integer")
	}
	if err := rag.ValidatePage(page, doc.PageCount()); err != nil {
		return httpError(err)
	}

	text := doc.Content.Text
	if doc.Type == document.Paginated {
		text = doc.Content.Pages[doc.Content.PageNumbers()[page-1]]
	}
	return c.JSON(http.StatusOK, PageResponse{
		Document: doc.Name,
		Page:     page,
		Pages:    doc.PageCount(),
		Text:     text,
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	q := rag.Query{Question: req.Question, FileType: req.FileType, Sourcing: req.Sourcing}
	if req.Document != "" {
		doc, err := s.reg.Library().Get(req.Document)
		if err != nil {
			return httpError(err)
		}
		q.Document = doc
	} else {
		q.Document = s.reg.Library().Latest()
	}
	if q.Document == nil && q.FileType == 0 {
		q.FileType = document.PlainText
	}

	ctx := c.Request().Context()
	docName := ""
	if q.Document != nil {
		docName = q.Document.Name
		ctx = logging.WithDocument(ctx, docName)
	}

	if !req.Stream {
		ans, err := s.reg.RAG().Ask(ctx, q, nil)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, AnswerResponse{Answer: ans, Document: docName})
	}

	sse := newSSEWriter(c)
	ans, err := s.reg.RAG().Ask(ctx, q, func(fragment string) {
		sse.send("token", TokenEvent{Text: fragment})
	})
	if err != nil {
		if !sse.started {
			return httpError(err)
		}
		sse.send("error", ErrorEvent{Status: statusFor(err), Message: err.Error()})
		return nil
	}
	sse.send("answer", AnswerResponse{Answer: ans, Document: docName})
	sse.send("done", struct{}{})
	if sse.err != nil && !errors.Is(sse.err, ctx.Err()) {
		s.logger.Debug("sse write failed", zap.Error(sse.err))
	}
	return nil
}

func (s *Server) handleCitations(c echo.Context) error {
	var req CitationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Document == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document field is required")
	}
	doc, err := s.reg.Library().Get(req.Document)
	if err != nil {
		return httpError(err)
	}
	res := citation.Locate(citation.FromFile(doc), req.Citations)
	if res.Spans == nil {
		res.Spans = []citation.Span{}
	}
	return c.JSON(http.StatusOK, CitationsResponse{Document: doc.Name, Result: res})
}
