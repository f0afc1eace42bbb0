// Package cleaner strips non-content preamble from markdown sources, normalizes
// whitespace and derives a document title.
package cleaner

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"doris-rag/internal/domain"
)

// fences are the recognized front-matter delimiters (YAML and TOML).
var fences = []string{"---", "+++"}

var md = goldmark.New()

// Clean removes a leading front-matter block, trims trailing whitespace on every
// line, collapses runs of blank lines to one and trims leading/trailing blank content.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.TrimPrefix(s, "\ufeff")
	s = stripFrontMatter(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r\f\v")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

func stripFrontMatter(s string) string {
	for _, fence := range fences {
		if !strings.HasPrefix(s, fence+"\n") {
			continue
		}
		rest := s[len(fence)+1:]
		if strings.HasPrefix(rest, fence+"\n") {
			return rest[len(fence)+1:]
		}
		if end := strings.Index(rest, "\n"+fence+"\n"); end >= 0 {
			return rest[end+len(fence)+2:]
		}
		if strings.HasSuffix(rest, "\n"+fence) {
			return ""
		}
	}
	return s
}

// Title returns the text of the first level-1 heading, else the first level-2
// heading, else fallback.
func Title(cleaned, fallback string) string {
	src := []byte(cleaned)
	doc := md.Parser().Parse(text.NewReader(src))

	var h1, h2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		switch {
		case h.Level == 1 && h1 == "":
			h1 = headingText(h, src)
			if h1 != "" {
				return ast.WalkStop, nil
			}
		case h.Level == 2 && h2 == "":
			h2 = headingText(h, src)
		}
		return ast.WalkSkipChildren, nil
	})
	switch {
	case h1 != "":
		return h1
	case h2 != "":
		return h2
	default:
		return fallback
	}
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// Process cleans doc and derives its title, falling back to fallback.
// It returns domain.ErrEmptyDocument when nothing remains after cleaning.
func Process(doc domain.Document, fallback string) (domain.Document, error) {
	cleaned := Clean(doc.RawText)
	if strings.TrimSpace(cleaned) == "" {
		return domain.Document{Path: doc.Path, Title: fallback}, domain.ErrEmptyDocument
	}
	return domain.Document{
		Path:    doc.Path,
		Title:   Title(cleaned, fallback),
		RawText: cleaned,
	}, nil
}
