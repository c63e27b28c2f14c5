package embeddings

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultFastEmbedModel is the local model used when none is configured.
const DefaultFastEmbedModel = "BAAI/bge-small-en-v1.5"

var fastEmbedDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// FastEmbedDimension returns the vector length of a known local model.
func FastEmbedDimension(model string) (int, bool) {
	dim, ok := fastEmbedDimensions[model]
	return dim, ok
}

var onnxLibraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

// ONNXLibraryPath locates the ONNX runtime shared library. It checks the
// ONNX_PATH environment variable, then ~/.config/docmind/lib. Returns ""
// when neither exists.
func ONNXLibraryPath() string {
	if p := os.Getenv("ONNX_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	name, ok := onnxLibraryNames[runtime.GOOS]
	if !ok {
		name = "libonnxruntime.so"
	}
	p := filepath.Join(home, ".config", "docmind", "lib", name)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
