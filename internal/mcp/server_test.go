package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/config"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/services"
	"github.com/fyrsmithlabs/docmind/internal/vectorstore"
)

type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 32)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%32]++
	}
	return vec, nil
}

type fakeChat struct {
	mu        sync.Mutex
	status    int
	answer    []string
	citations string
}

func (f *fakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	status := f.status
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
		return
	}

	if stream, _ := body["stream"].(bool); stream {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range f.answer {
			b, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": frag}}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": f.citations}}},
	})
}

type fixture struct {
	session *mcp.ClientSession
	reg     services.Registry
	chat    *fakeChat
	dir     string
}

func setupTestServer(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	fc := &fakeChat{answer: []string{"Hello", " world"}, citations: "hello world"}
	chatSrv := httptest.NewServer(fc)
	t.Cleanup(chatSrv.Close)

	cfg := config.Default()
	cfg.Store.Path = vectorstore.InMemoryPath
	cfg.Chat.BaseURL = chatSrv.URL
	cfg.Chat.APIKey = "test"

	reg, err := services.Open(ctx, cfg, zap.NewNop(), services.WithEmbedder(wordEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	srv, err := NewServer(&Config{Name: "docmind", Version: "test"}, reg)
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return &fixture{session: cs, reg: reg, chat: fc, dir: t.TempDir()}
}

// call invokes a tool and decodes its structured output into out. It
// returns the result so callers can inspect IsError.
func (f *fixture) call(t *testing.T, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func (f *fixture) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorContains(t, err, "registry is required")
}

func TestListTools(t *testing.T) {
	f := setupTestServer(t)

	res, err := f.session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_documents",
		"import_document",
		"reload_documents",
		"read_page",
		"ask",
		"locate_citations",
	}, names)
}

func TestImportDocument(t *testing.T) {
	f := setupTestServer(t)
	path := f.writeFile(t, "notes.txt", "hello world")

	var out importDocumentOutput
	res := f.call(t, "import_document", map[string]any{"path": path}, &out)
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, "notes.txt", out.Document.Name)
	assert.Equal(t, "plain_text", out.Document.Type)
	assert.Equal(t, 1, out.Chunks)
	assert.Contains(t, resultText(res), "Imported notes.txt")

	var list listDocumentsOutput
	f.call(t, "list_documents", map[string]any{}, &list)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, path, list.Documents[0].Path)

	t.Run("duplicate", func(t *testing.T) {
		res := f.call(t, "import_document", map[string]any{"path": path}, nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), services.ErrDuplicateDocument.Error())
	})

	t.Run("unsupported", func(t *testing.T) {
		res := f.call(t, "import_document", map[string]any{"path": f.writeFile(t, "a.png", "x")}, nil)
		assert.True(t, res.IsError)
	})

	t.Run("blank path", func(t *testing.T) {
		res := f.call(t, "import_document", map[string]any{"path": "  "}, nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "path is required")
	})
}

func TestAsk(t *testing.T) {
	f := setupTestServer(t)
	f.call(t, "import_document", map[string]any{"path": f.writeFile(t, "a.txt", "intro\nhello world")}, nil)

	var out askOutput
	res := f.call(t, "ask", map[string]any{"question": "hello", "sourcing": true}, &out)
	require.False(t, res.IsError, resultText(res))

	assert.True(t, out.Found)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "Hello world", out.Answer)
	assert.Equal(t, "Hello world", resultText(res))
	assert.Equal(t, []string{"hello world"}, out.Citations)
	require.Len(t, out.Spans, 1)
	assert.Equal(t, spanOutput{Start: 5, End: 16, Text: "hello world"}, out.Spans[0])
}

func TestAsk_NoContext(t *testing.T) {
	f := setupTestServer(t)

	var out askOutput
	res := f.call(t, "ask", map[string]any{"question": "hello"}, &out)
	require.False(t, res.IsError)
	assert.False(t, out.Found)
	assert.Equal(t, rag.NoInformation, out.Context)
	assert.Equal(t, rag.NoInformation, resultText(res))
}

func TestAsk_Errors(t *testing.T) {
	f := setupTestServer(t)
	f.call(t, "import_document", map[string]any{"path": f.writeFile(t, "a.txt", "hello world")}, nil)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"empty question", map[string]any{"question": " "}, rag.ErrEmptyQuestion.Error()},
		{"unknown document", map[string]any{"question": "hello", "document": "nope.txt"}, services.ErrDocumentNotFound.Error()},
		{"bad file type", map[string]any{"question": "hello", "file_type": "slides"}, "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.call(t, "ask", tt.args, nil)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), tt.want)
		})
	}

	t.Run("chat failure", func(t *testing.T) {
		f.chat.mu.Lock()
		f.chat.status = http.StatusUnauthorized
		f.chat.mu.Unlock()

		res := f.call(t, "ask", map[string]any{"question": "hello"}, nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "401")
	})
}

func TestLocateCitations(t *testing.T) {
	f := setupTestServer(t)
	f.call(t, "import_document", map[string]any{"path": f.writeFile(t, "a.txt", "First point.\nSecond point.")}, nil)

	var out locateCitationsOutput
	res := f.call(t, "locate_citations", map[string]any{
		"document":  "a.txt",
		"citations": "Second point. ||| missing",
	}, &out)
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, "a.txt", out.Document)
	require.Len(t, out.Spans, 1)
	assert.Equal(t, "Second point.", out.Spans[0].Text)
	assert.Equal(t, "Located 1 of 2 citation(s)", resultText(res))

	res = f.call(t, "locate_citations", map[string]any{"document": "nope.txt", "citations": "x"}, nil)
	assert.True(t, res.IsError)
}

func TestReadPageAndReload(t *testing.T) {
	f := setupTestServer(t)
	path := f.writeFile(t, "a.txt", "hello world")
	f.call(t, "import_document", map[string]any{"path": path}, nil)

	var page readPageOutput
	res := f.call(t, "read_page", map[string]any{"document": "a.txt", "page": 1}, &page)
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, readPageOutput{Document: "a.txt", Page: 1, Pages: 1, Text: "hello world"}, page)

	res = f.call(t, "read_page", map[string]any{"document": "a.txt", "page": 2}, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), rag.ErrPageOutOfRange.Error())

	require.NoError(t, os.WriteFile(path, []byte("hello again world"), 0o600))
	var reload reloadDocumentsOutput
	res = f.call(t, "reload_documents", map[string]any{}, &reload)
	require.False(t, res.IsError, resultText(res))
	assert.Equal(t, 1, reload.Documents)
	assert.Equal(t, 1, reload.Chunks)

	f.call(t, "read_page", map[string]any{"document": "a.txt", "page": 1}, &page)
	assert.Equal(t, "hello again world", page.Text)
}
