package extraction

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readUTF8(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.ToValidUTF8(data, []byte("�")), nil
}

func extractText(path string) (document.Content, error) {
	data, err := readUTF8(path)
	if err != nil {
		return document.Content{}, err
	}
	return document.Content{Text: string(data)}, nil
}

func extractMarkdown(path string) (document.Content, error) {
	data, err := readUTF8(path)
	if err != nil {
		return document.Content{}, err
	}
	out, err := RenderMarkdown(data)
	if err != nil {
		return document.Content{}, err
	}
	return document.Content{Text: out}, nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown reduces Markdown to its visible text, one block per line.
// Markup, raw HTML and link targets are dropped; table cells are separated
// by tabs.
func RenderMarkdown(src []byte) (string, error) {
	root := markdown.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	endLine := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Value(src))
				switch {
				case node.HardLineBreak():
					b.WriteByte('\n')
				case node.SoftLineBreak():
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				endLine()
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *extast.TaskCheckBox:
			if entering {
				if node.IsChecked {
					b.WriteString("[x] ")
				} else {
					b.WriteString("[ ] ")
				}
			}
		case *extast.TableCell:
			if entering && n.PreviousSibling() != nil {
				b.WriteByte('\t')
			}
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock, *extast.TableRow, *extast.TableHeader:
			if !entering {
				endLine()
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
