package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docmind/internal/config"
)

// embedServer answers TEI /embed requests with word-hash vectors.
func embedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs string `json:"inputs"`
		}
		if r.URL.Path != "/embed" || json.NewDecoder(r.Body).Decode(&req) != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		vec := make([]float32, 32)
		for _, word := range strings.FieldsFunc(strings.ToLower(req.Inputs), func(r rune) bool {
			return r < 'a' || r > 'z'
		}) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%32]++
		}
		_ = json.NewEncoder(w).Encode([][]float32{vec})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// chatServer streams "Hello world" and returns "hello world" as citations.
func chatServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if stream, _ := body["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, frag := range []string{"Hello", " world"} {
				b, _ := json.Marshal(map[string]any{
					"choices": []any{map[string]any{"delta": map[string]any{"content": frag}}},
				})
				_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			}
			_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "hello world"}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupEnv points docmind at fake backends and an isolated home.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCMIND_EMBEDDINGS_PROVIDER", "tei")
	t.Setenv("DOCMIND_EMBEDDINGS_BASE_URL", embedServer(t).URL)
	t.Setenv("DOCMIND_CHAT_BASE_URL", chatServer(t).URL)
	t.Setenv("DOCMIND_CHAT_API_KEY", "test")
	t.Setenv("DOCMIND_STORE_PATH", ":memory:")
	t.Setenv("DOCMIND_LOGGING_LEVEL", "error")
	t.Cleanup(func() {
		configPath = ""
		askSourcing = false
		initForce = false
	})
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"ask", "chat", "init", "mcp", "serve", "version"}
	var got []string
	for _, cmd := range rootCmd.Commands() {
		got = append(got, cmd.Name())
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docmind")
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Build Date:")
}

func TestInitCmd(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	out, err := execute(t, context.Background(), "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote config to: "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	def := config.Default()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Chat.Model, cfg.Chat.Model)
	assert.Equal(t, def.RAG.TopK, cfg.RAG.TopK)
	assert.Equal(t, def.Chunker.MaxChunkSize, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, def.Watch.Debounce, cfg.Watch.Debounce)

	out, err = execute(t, context.Background(), "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")

	out, err = execute(t, context.Background(), "init", "--config", path, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote config to:")
}

func TestAskCmd(t *testing.T) {
	setupEnv(t)
	path := writeFile(t, "notes.txt", "intro\nhello world")

	out, err := execute(t, context.Background(), "ask", path, "what", "is", "said?")
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", out)
}

func TestAskCmd_Sourcing(t *testing.T) {
	setupEnv(t)
	path := writeFile(t, "notes.txt", "intro\nhello world")

	out, err := execute(t, context.Background(), "ask", "--sourcing", path, "what is said?")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello world\n")
	assert.Contains(t, out, "Citations (1):")
	assert.Contains(t, out, `[1] "hello world"`)
}

func TestAskCmd_Errors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, context.Background(), "ask", "only-one-arg")
	require.Error(t, err)

	_, err = execute(t, context.Background(), "ask", writeFile(t, "x.bin", "data"), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to import")

	t.Setenv("DOCMIND_RAG_TOP_K", "-1")
	_, err = execute(t, context.Background(), "ask", writeFile(t, "a.txt", "hello"), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServeCmd(t *testing.T) {
	setupEnv(t)
	port := freePort(t)
	t.Setenv("DOCMIND_SERVER_PORT", strconv.Itoa(port))
	path := writeFile(t, "notes.txt", "intro\nhello world")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, "serve", "--watch", path)
		errCh <- err
	}()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/v1/documents")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var docs []struct {
			Name string `json:"name"`
		}
		if json.NewDecoder(resp.Body).Decode(&docs) != nil {
			return false
		}
		return len(docs) == 1 && docs[0].Name == "notes.txt"
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
