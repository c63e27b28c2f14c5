package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/rag"
)

var errInvalidArgument = errors.New("invalid argument")

// documentInfo describes an imported document.
type documentInfo struct {
	Name  string `json:"name" jsonschema:"File name"`
	Path  string `json:"path" jsonschema:"Absolute path the document was loaded from"`
	Type  string `json:"type" jsonschema:"plain_text or paginated"`
	Pages int    `json:"pages" jsonschema:"Number of pages (1 for plain text)"`
	Size  int64  `json:"size" jsonschema:"File size in bytes"`
}

func infoFor(f *document.File) documentInfo {
	return documentInfo{
		Name:  f.Name,
		Path:  f.Path,
		Type:  f.Type.String(),
		Pages: f.PageCount(),
		Size:  f.Size,
	}
}

type spanOutput struct {
	Start int    `json:"start" jsonschema:"Rune offset of the first matched character in the normalized text"`
	End   int    `json:"end" jsonschema:"Rune offset one past the last matched character"`
	Text  string `json:"text" jsonschema:"The matched citation sentence"`
}

func spansFor(spans []citation.Span) []spanOutput {
	out := make([]spanOutput, 0, len(spans))
	for _, sp := range spans {
		out = append(out, spanOutput{Start: sp.Start, End: sp.End, Text: sp.Text})
	}
	return out
}

type listDocumentsInput struct{}

type listDocumentsOutput struct {
	Documents []documentInfo `json:"documents" jsonschema:"Imported documents in import order"`
	Count     int            `json:"count" jsonschema:"Number of documents"`
}

type importDocumentInput struct {
	Path string `json:"path" jsonschema:"Path of a .txt .md .pdf .docx .pptx or .xlsx file"`
}

type importDocumentOutput struct {
	Document documentInfo `json:"document" jsonschema:"The imported document"`
	Chunks   int          `json:"chunks" jsonschema:"Number of chunks stored"`
}

type reloadDocumentsInput struct{}

type reloadDocumentsOutput struct {
	Documents int `json:"documents" jsonschema:"Documents re-imported"`
	Chunks    int `json:"chunks" jsonschema:"Chunks stored after the reload"`
}

type readPageInput struct {
	Document string `json:"document" jsonschema:"Document name or path"`
	Page     int    `json:"page" jsonschema:"1-based page number"`
}

type readPageOutput struct {
	Document string `json:"document" jsonschema:"Document name"`
	Page     int    `json:"page" jsonschema:"Page number"`
	Pages    int    `json:"pages" jsonschema:"Total pages"`
	Text     string `json:"text" jsonschema:"Page text"`
}

type askInput struct {
	Question string `json:"question" jsonschema:"Question to answer from the imported documents"`
	Document string `json:"document,omitempty" jsonschema:"Document to locate citations in (default: latest import)"`
	FileType string `json:"file_type,omitempty" jsonschema:"Prompt format override: plain_text or paginated"`
	Sourcing bool   `json:"sourcing,omitempty" jsonschema:"Run the citation pass and locate the cited sentences"`
}

type askOutput struct {
	ID        string       `json:"id" jsonschema:"Query ID"`
	Found     bool         `json:"found" jsonschema:"False when no relevant context was retrieved"`
	Answer    string       `json:"answer" jsonschema:"Model answer"`
	Context   string       `json:"context" jsonschema:"Retrieved context the answer was grounded on"`
	Citations []string     `json:"citations" jsonschema:"Verbatim sentences the model cited"`
	Spans     []spanOutput `json:"spans" jsonschema:"Citations located in the document"`
}

type locateCitationsInput struct {
	Document  string `json:"document" jsonschema:"Document name or path"`
	Citations string `json:"citations" jsonschema:"Sentences separated by |||"`
}

type locateCitationsOutput struct {
	Document string       `json:"document" jsonschema:"Document name"`
	Spans    []spanOutput `json:"spans" jsonschema:"Located spans in citation order"`
}

func (s *Server) registerTools() {
	// list_documents
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents imported into the library",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listDocumentsInput) (*mcp.CallToolResult, listDocumentsOutput, error) {
		done := s.metrics.track(ctx, "list_documents")
		docs := s.reg.Library().List()
		out := listDocumentsOutput{Documents: make([]documentInfo, 0, len(docs)), Count: len(docs)}
		for _, d := range docs {
			out.Documents = append(out.Documents, infoFor(d))
		}
		done(nil)
		return textResult(fmt.Sprintf("%d document(s) imported", out.Count)), out, nil
	})

	// import_document
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "import_document",
		Description: "Extract, chunk, embed and store a document from a local path",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args importDocumentInput) (_ *mcp.CallToolResult, _ importDocumentOutput, toolErr error) {
		done := s.metrics.track(ctx, "import_document")
		defer func() { done(toolErr) }()

		if strings.TrimSpace(args.Path) == "" {
			return nil, importDocumentOutput{}, fmt.Errorf("%w: path is required", errInvalidArgument)
		}
		doc, n, err := s.reg.Library().Import(ctx, args.Path)
		if err != nil {
			s.logger.Warn("import failed", zap.String("path", args.Path), zap.Error(err))
			return nil, importDocumentOutput{}, fmt.Errorf("import failed: %w", err)
		}
		out := importDocumentOutput{Document: infoFor(doc), Chunks: n}
		return textResult(fmt.Sprintf("Imported %s (%d chunks)", doc.Name, n)), out, nil
	})

	// reload_documents
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reload_documents",
		Description: "Clear the vector store and re-import every library document from disk",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args reloadDocumentsInput) (_ *mcp.CallToolResult, _ reloadDocumentsOutput, toolErr error) {
		done := s.metrics.track(ctx, "reload_documents")
		defer func() { done(toolErr) }()

		n, err := s.reg.Library().Reload(ctx)
		if err != nil {
			return nil, reloadDocumentsOutput{}, fmt.Errorf("reload failed: %w", err)
		}
		out := reloadDocumentsOutput{Documents: len(s.reg.Library().List()), Chunks: n}
		return textResult(fmt.Sprintf("Reloaded %d document(s)", out.Documents)), out, nil
	})

	// read_page
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_page",
		Description: "Read one page of an imported document",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args readPageInput) (_ *mcp.CallToolResult, _ readPageOutput, toolErr error) {
		done := s.metrics.track(ctx, "read_page")
		defer func() { done(toolErr) }()

		doc, err := s.reg.Library().Get(args.Document)
		if err != nil {
			return nil, readPageOutput{}, err
		}
		if err := rag.ValidatePage(args.Page, doc.PageCount()); err != nil {
			return nil, readPageOutput{}, err
		}
		text := doc.Content.Text
		if doc.Type == document.Paginated {
			text = doc.Content.Pages[doc.Content.PageNumbers()[args.Page-1]]
		}
		out := readPageOutput{Document: doc.Name, Page: args.Page, Pages: doc.PageCount(), Text: text}
		return textResult(text), out, nil
	})

	// ask
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the imported documents, optionally with located citations",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askInput) (_ *mcp.CallToolResult, _ askOutput, toolErr error) {
		done := s.metrics.track(ctx, "ask")
		defer func() { done(toolErr) }()

		q, err := s.query(args)
		if err != nil {
			return nil, askOutput{}, err
		}
		ans, err := s.reg.RAG().Ask(ctx, q, nil)
		if errors.Is(err, rag.ErrNoRelevantContext) {
			out := askOutput{ID: ans.ID, Context: ans.Context, Citations: []string{}, Spans: []spanOutput{}}
			return textResult(rag.NoInformation), out, nil
		}
		if err != nil {
			return nil, askOutput{}, fmt.Errorf("ask failed: %w", err)
		}

		out := askOutput{
			ID:        ans.ID,
			Found:     true,
			Answer:    ans.Text,
			Context:   ans.Context,
			Citations: citation.Split(ans.Citations),
			Spans:     spansFor(ans.Spans),
		}
		return textResult(ans.Text), out, nil
	})

	// locate_citations
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "locate_citations",
		Description: "Find where |||-separated citation sentences occur in an imported document",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args locateCitationsInput) (_ *mcp.CallToolResult, _ locateCitationsOutput, toolErr error) {
		done := s.metrics.track(ctx, "locate_citations")
		defer func() { done(toolErr) }()

		doc, err := s.reg.Library().Get(args.Document)
		if err != nil {
			return nil, locateCitationsOutput{}, err
		}
		res := citation.Locate(citation.FromFile(doc), args.Citations)
		out := locateCitationsOutput{Document: doc.Name, Spans: spansFor(res.Spans)}
		return textResult(fmt.Sprintf("Located %d of %d citation(s)", len(out.Spans), len(citation.Split(args.Citations)))), out, nil
	})
}

// query resolves the target document and prompt format of an ask call.
func (s *Server) query(args askInput) (rag.Query, error) {
	q := rag.Query{Question: args.Question, Sourcing: args.Sourcing}
	if args.FileType != "" {
		ft, err := document.ParseFileType(args.FileType)
		if err != nil {
			return q, err
		}
		q.FileType = ft
	}
	if args.Document != "" {
		doc, err := s.reg.Library().Get(args.Document)
		if err != nil {
			return q, err
		}
		q.Document = doc
	} else {
		q.Document = s.reg.Library().Latest()
	}
	if q.Document == nil && q.FileType == 0 {
		q.FileType = document.PlainText
	}
	return q, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
