package extraction

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/fyrsmithlabs/docmind/internal/document"
)

func extractDOCX(path string) (document.Content, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return document.Content{}, fmt.Errorf("opening docx: %w", err)
	}
	defer r.Close()

	pages, err := splitOOXML(strings.NewReader(r.Editable().GetContent()))
	if err != nil {
		return document.Content{}, err
	}
	return document.Content{Pages: pagesFrom(pages)}, nil
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX treats every slide as a page, in slide-number order.
func extractPPTX(path string) (document.Content, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return document.Content{}, fmt.Errorf("opening pptx: %w", err)
	}
	defer zr.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideName.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{num: n, file: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return document.Content{}, fmt.Errorf("reading slide %d: %w", s.num, err)
		}
		parts, err := splitOOXML(rc)
		_ = rc.Close()
		if err != nil {
			return document.Content{}, fmt.Errorf("parsing slide %d: %w", s.num, err)
		}
		texts = append(texts, strings.Join(parts, "\n"))
	}
	return document.Content{Pages: pagesFrom(texts)}, nil
}

// splitOOXML collects the visible text of a WordprocessingML or DrawingML
// part and splits it into pages. Both vocabularies spell text runs "t" and
// paragraphs "p". A page starts at every explicit page break, and at every
// rendered page break that follows some text on the current page.
func splitOOXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		pages  []string
		b      strings.Builder
		inText bool
	)
	nextPage := func() {
		pages = append(pages, b.String())
		b.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "cr":
				b.WriteByte('\n')
			case "br":
				if attr(t, "type") == "page" {
					nextPage()
				} else {
					b.WriteByte('\n')
				}
			case "lastRenderedPageBreak":
				if strings.TrimSpace(b.String()) != "" {
					nextPage()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	nextPage()
	return pages, nil
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
