package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	httpapi "github.com/fyrsmithlabs/docmind/internal/http"
)

var (
	importUpload bool

	askDocument string
	askSourcing bool
	askNoStream bool
)

func init() {
	importCmd.Flags().BoolVar(&importUpload, "upload", false, "upload the file instead of sending its path")

	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "document to cite (default: latest import)")
	askCmd.Flags().BoolVarP(&askSourcing, "sourcing", "s", false, "locate the passages the answer is based on")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "wait for the whole answer")
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check docmind server health",
	Long: `Check the health status of the docmind HTTP server.

Examples:
  dmctl health
  dmctl health --server http://localhost:9000`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	var h httpapi.HealthResponse
	if err := doJSON(cmd, &http.Client{Timeout: 5 * time.Second}, http.MethodGet, "/health", nil, &h); err != nil {
		return err
	}
	cmd.Printf("Server Status: %s\n", h.Status)
	if h.Version != "" {
		cmd.Printf("Version: %s\n", h.Version)
	}
	cmd.Printf("Documents: %d\n", h.Documents)
	cmd.Printf("Records: %d\n", h.Records)
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var docs []httpapi.DocumentInfo
		if err := doJSON(cmd, nil, http.MethodGet, "/api/v1/documents", nil, &docs); err != nil {
			return err
		}
		if len(docs) == 0 {
			cmd.Println("No documents imported.")
			return nil
		}
		for _, d := range docs {
			cmd.Printf("%s\t%s\t%d page(s)\t%s\n", d.Name, d.Type, d.Pages, d.Path)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a document",
	Long: `Import a document into the server's library.

By default the absolute path is sent and the server reads the file itself.
With --upload the file content is sent instead, for servers on another host.

Examples:
  dmctl import report.pdf
  dmctl import --upload --server http://docs.internal:8765 report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var resp httpapi.ImportResponse
	if importUpload {
		if err := upload(cmd, args[0], &resp); err != nil {
			return err
		}
	} else {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := doJSON(cmd, nil, http.MethodPost, "/api/v1/documents", httpapi.ImportRequest{Path: path}, &resp); err != nil {
			return err
		}
	}
	cmd.Printf("Imported %s (%s, %d page(s), %d chunk(s))\n",
		resp.Document.Name, resp.Document.Type, resp.Document.Pages, resp.Chunks)
	return nil
}

func upload(cmd *cobra.Command, path string, out *httpapi.ImportResponse) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint("/api/v1/documents"), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := (&http.Client{Timeout: requestTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-import every document from disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp httpapi.ReloadResponse
		if err := doJSON(cmd, nil, http.MethodPost, "/api/v1/documents/reload", nil, &resp); err != nil {
			return err
		}
		cmd.Printf("Reloaded %d document(s), %d chunk(s)\n", resp.Documents, resp.Chunks)
		return nil
	},
}

var pageCmd = &cobra.Command{
	Use:   "page <document> <n>",
	Short: "Print one page of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page %q", args[1])
		}
		var resp httpapi.PageResponse
		path := fmt.Sprintf("/api/v1/documents/%s/pages/%d", url.PathEscape(args[0]), n)
		if err := doJSON(cmd, nil, http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		cmd.Printf("--- %s, page %d of %d ---\n%s\n", resp.Document, resp.Page, resp.Pages, resp.Text)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask a question",
	Long: `Ask a question about the imported documents. The answer is streamed as
it is generated unless --no-stream is given.

Examples:
  dmctl ask what was the revenue in 2023
  dmctl ask --sourcing --document report.pdf "who signed the contract?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	req := httpapi.QueryRequest{
		Question: strings.Join(args, " "),
		Document: askDocument,
		Sourcing: askSourcing,
		Stream:   !askNoStream,
	}
	out := cmd.OutOrStdout()

	var ans httpapi.AnswerResponse
	if askNoStream {
		if err := doJSON(cmd, &http.Client{}, http.MethodPost, "/api/v1/query", req, &ans); err != nil {
			return err
		}
		if ans.Answer != nil {
			fmt.Fprintln(out, ans.Text)
		}
	} else {
		got, err := streamAnswer(cmd, req, out)
		if err != nil {
			return err
		}
		ans = got
	}

	if !askSourcing || ans.Answer == nil {
		return nil
	}
	printSpans(out, ans.Spans)
	return nil
}

// streamAnswer prints token events as they arrive and returns the final
// answer event.
func streamAnswer(cmd *cobra.Command, q httpapi.QueryRequest, out io.Writer) (httpapi.AnswerResponse, error) {
	var ans httpapi.AnswerResponse
	b, err := json.Marshal(q)
	if err != nil {
		return ans, err
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint("/api/v1/query"), bytes.NewReader(b))
	if err != nil {
		return ans, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout; generation can take minutes.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ans, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ans, apiError(resp)
	}

	var streamErr error
	done := false
	err = readEvents(resp.Body, func(ev sseEvent) bool {
		switch ev.name {
		case "token":
			var tok httpapi.TokenEvent
			if streamErr = json.Unmarshal(ev.data, &tok); streamErr != nil {
				return false
			}
			fmt.Fprint(out, tok.Text)
		case "answer":
			streamErr = json.Unmarshal(ev.data, &ans)
			fmt.Fprintln(out)
			return streamErr == nil
		case "error":
			var e httpapi.ErrorEvent
			if streamErr = json.Unmarshal(ev.data, &e); streamErr == nil {
				streamErr = fmt.Errorf("server error %d: %s", e.Status, e.Message)
			}
			return false
		case "done":
			done = true
			return false
		}
		return true
	})
	if err == nil {
		err = streamErr
	}
	if err == nil && !done {
		err = errors.New("stream ended before the answer completed")
	}
	return ans, err
}

func printSpans(out io.Writer, spans []citation.Span) {
	if len(spans) == 0 {
		fmt.Fprintln(out, "\nNo citations located.")
		return
	}
	fmt.Fprintf(out, "\nCitations (%d):\n", len(spans))
	for i, s := range spans {
		fmt.Fprintf(out, "  [%d] %d-%d %q\n", i+1, s.Start, s.End, s.Text)
	}
}

var citeCmd = &cobra.Command{
	Use:   "cite <document> <citations...>",
	Short: "Locate citation sentences in a document",
	Long: `Find where each sentence occurs in the document. Matching ignores line
breaks, so sentences copied from a wrapped page still match.

Example:
  dmctl cite report.pdf "Revenue grew 12%." "The board approved it."`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := httpapi.CitationsRequest{Document: args[0], Citations: strings.Join(args[1:], citation.Separator)}
		var resp httpapi.CitationsResponse
		if err := doJSON(cmd, nil, http.MethodPost, "/api/v1/citations", req, &resp); err != nil {
			return err
		}
		printSpans(cmd.OutOrStdout(), resp.Spans)
		return nil
	},
}
