package rag

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

//go:embed prompts.toml
var defaultPrompts []byte

// Prompts holds the immutable prompt set. Build it with LoadPrompts or
// DefaultPrompts; the zero value is not usable.
type Prompts struct {
	system    map[document.FileType]string
	answer    *template.Template
	citations *template.Template
}

type promptFile struct {
	System    map[string]string `toml:"system"`
	Answer    string            `toml:"answer"`
	Citations string            `toml:"citations"`
}

// DefaultPrompts returns the embedded prompt set.
func DefaultPrompts() (*Prompts, error) {
	return parsePrompts(defaultPrompts, "embedded prompts")
}

// LoadPrompts reads prompts from a TOML file. Entries the file omits fall
// back to the embedded defaults. An empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return DefaultPrompts()
	}

	var base promptFile
	if _, err := toml.Decode(string(defaultPrompts), &base); err != nil {
		return nil, fmt.Errorf("decoding embedded prompts: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}
	var override promptFile
	if _, err := toml.Decode(string(data), &override); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	for k, v := range override.System {
		base.System[k] = v
	}
	if override.Answer != "" {
		base.Answer = override.Answer
	}
	if override.Citations != "" {
		base.Citations = override.Citations
	}
	return buildPrompts(base, path)
}

func parsePrompts(data []byte, source string) (*Prompts, error) {
	var pf promptFile
	if _, err := toml.Decode(string(data), &pf); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	return buildPrompts(pf, source)
}

// buildPrompts requires a non-empty system prompt for every file type.
func buildPrompts(pf promptFile, source string) (*Prompts, error) {
	p := &Prompts{system: make(map[document.FileType]string, len(document.FileTypes))}

	for key, text := range pf.System {
		ft, err := document.ParseFileType(key)
		if err != nil {
			return nil, fmt.Errorf("%s: system prompt key: %w", source, err)
		}
		p.system[ft] = strings.TrimSpace(text)
	}
	for _, ft := range document.FileTypes {
		if p.system[ft] == "" {
			return nil, fmt.Errorf("%w: %s has no system prompt for %s", ErrCitationPromptMissing, source, ft)
		}
	}

	if strings.TrimSpace(pf.Answer) == "" {
		return nil, fmt.Errorf("%w: %s has no answer template", ErrCitationPromptMissing, source)
	}
	if strings.TrimSpace(pf.Citations) == "" {
		return nil, fmt.Errorf("%w: %s has no citations template", ErrCitationPromptMissing, source)
	}

	var err error
	if p.answer, err = template.New("answer").Option("missingkey=error").Parse(strings.TrimSpace(pf.Answer)); err != nil {
		return nil, fmt.Errorf("%s: parsing answer template: %w", source, err)
	}
	if p.citations, err = template.New("citations").Option("missingkey=error").Parse(strings.TrimSpace(pf.Citations)); err != nil {
		return nil, fmt.Errorf("%s: parsing citations template: %w", source, err)
	}
	return p, nil
}

// System returns the system prompt for ft.
func (p *Prompts) System(ft document.FileType) (string, error) {
	s, ok := p.system[ft]
	if !ok {
		return "", fmt.Errorf("%w: %v", document.ErrUnsupportedFileType, ft)
	}
	return s, nil
}

// Answer renders the first-pass user prompt.
func (p *Prompts) Answer(context, question string) (string, error) {
	return render(p.answer, map[string]string{"Context": context, "Question": question})
}

// Citations renders the second-pass user prompt.
func (p *Prompts) Citations(context, answer string) (string, error) {
	return render(p.citations, map[string]string{"Context": context, "Answer": answer})
}

func render(t *template.Template, data map[string]string) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
