package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docmind/internal/config"
)

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a config file with every default spelled out to
~/.config/docmind/config.yaml, or to the path given by --config.

Secrets are left blank; set them in the file or through DOCMIND_CHAT_API_KEY
and DOCMIND_EMBEDDINGS_API_KEY.

Examples:
  docmind init
  docmind init --config ./docmind.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var configTemplate = template.Must(template.New("config").Parse(`# docmind configuration. Every key can also be set through the
# environment, e.g. DOCMIND_CHAT_MODEL or DOCMIND_RAG_TOP_K.

server:
  host: {{.Server.Host}}
  port: {{.Server.Port}}
  shutdown_timeout: {{.Server.ShutdownTimeout.Duration}}

logging:
  level: {{.Logging.Level}}
  format: {{.Logging.Format}}
  file: ""
  stderr: false

telemetry:
  enabled: {{.Telemetry.Enabled}}
  endpoint: {{.Telemetry.Endpoint}}
  protocol: {{.Telemetry.Protocol}}
  service_name: {{.Telemetry.ServiceName}}

chunker:
  max_chunk_size: {{.Chunker.MaxChunkSize}}
  overlap: {{.Chunker.Overlap}}

embeddings:
  # fastembed (local ONNX), tei or openai
  provider: {{.Embeddings.Provider}}
  model: ""
  base_url: ""
  api_key: ""

store:
  # sqlite or chromem
  backend: {{.Store.Backend}}
  path: {{.Store.Path}}

chat:
  base_url: {{.Chat.BaseURL}}
  path: {{.Chat.Path}}
  model: {{.Chat.Model}}
  api_key: ""
  temperature: {{.Chat.Temperature}}
  max_tokens: {{.Chat.MaxTokens}}

rag:
  top_k: {{.RAG.TopK}}
  prompts_file: ""

extraction:
  max_file_size: {{.Extraction.MaxFileSize}}

watch:
  enabled: {{.Watch.Enabled}}
  debounce: {{.Watch.Debounce.Duration}}
`))

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return errors.New("cannot determine home directory; pass --config")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		cmd.Printf("Config already exists at: %s\n", path)
		cmd.Println("Use --force to overwrite.")
		return nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := configTemplate.Execute(f, config.Default()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	cmd.Printf("Wrote config to: %s\n", path)
	return nil
}
