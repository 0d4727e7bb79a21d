// Package docx reads the text of WordprocessingML documents: body paragraphs and
// tables, followed by headers and footers.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const bodyPart = "word/document.xml"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filePath string) (string, error) {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "open docx", err)
	}
	defer archive.Close()

	parts := map[string]*zip.File{}
	for _, f := range archive.File {
		parts[f.Name] = f
	}
	body, ok := parts[bodyPart]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "open docx", fmt.Errorf("missing %s", bodyPart))
	}

	order := []*zip.File{body}
	order = append(order, matching(parts, "word/header")...)
	order = append(order, matching(parts, "word/footer")...)

	var sections []string
	for _, part := range order {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := readPart(part)
		if err != nil {
			return "", domain.WrapError(domain.ErrUnsupportedFormat, "read docx part", fmt.Errorf("%s: %w", part.Name, err))
		}
		if text != "" {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, "\n\n"), nil
}

func matching(parts map[string]*zip.File, prefix string) []*zip.File {
	var out []*zip.File
	for name, f := range parts {
		if strings.HasPrefix(name, prefix) && path.Ext(name) == ".xml" {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return paragraphs(rc)
}

// paragraphs walks the XML stream: w:t runs are text, w:tab becomes a tab, w:br a
// newline. Each table row becomes one line with its cells separated by tabs.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines     []string
		line      strings.Builder
		cell      strings.Builder
		row       []string
		cellDepth int
		inText    bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			case "tc":
				cellDepth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(line.String())
				line.Reset()
				if text == "" {
					continue
				}
				if cellDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
					continue
				}
				lines = append(lines, text)
			case "tc":
				cellDepth--
				row = append(row, cell.String())
				cell.Reset()
			case "tr":
				if text := strings.TrimRight(strings.Join(row, "\t"), "\t"); text != "" {
					lines = append(lines, text)
				}
				row = nil
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
