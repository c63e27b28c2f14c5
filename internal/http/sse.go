package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// sseWriter writes server-sent events. Headers go out with the first
// event, so errors raised before any output can still use a status code.
type sseWriter struct {
	c       echo.Context
	started bool
	err     error
}

func newSSEWriter(c echo.Context) *sseWriter {
	return &sseWriter{c: c}
}

func (w *sseWriter) send(event string, v any) {
	if w.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}

	res := w.c.Response()
	if !w.started {
		h := res.Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		res.WriteHeader(http.StatusOK)
		w.started = true
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		w.err = err
		return
	}
	res.Flush()
}
