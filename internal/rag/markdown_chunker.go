package rag

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownChunker struct {
	maxSize int
	overlap int
}

// NewMarkdownChunker groups markdown blocks under their nearest level-1/2
// heading, so a retrieved chunk carries its section context. Blocks that do
// not fit the size budget fall back to plain sliding-window splitting.
func NewMarkdownChunker(maxSize, overlap int) Chunker {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = maxSize / 5
	}
	return &markdownChunker{maxSize: maxSize, overlap: overlap}
}

func (c *markdownChunker) Chunk(markdown string) []string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var chunks []string
	var current []string
	var currentSize int
	var heading string

	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, "\n\n")
		if heading != "" {
			content = heading + "\n" + content
		}
		chunks = append(chunks, content)
		current = nil
		currentSize = 0
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			heading = string(h.Text(reader.Source()))
			continue
		}
		txt := extractText(node, reader.Source())
		if txt == "" {
			continue
		}
		if len([]rune(txt)) > c.maxSize {
			flush()
			sub := (&plainChunker{maxSize: c.maxSize, overlap: c.overlap}).Chunk(txt)
			for _, s := range sub {
				if heading != "" {
					s = heading + "\n" + s
				}
				chunks = append(chunks, s)
			}
			continue
		}
		size := len([]rune(txt))
		if currentSize+size > c.maxSize {
			flush()
		}
		current = append(current, txt)
		currentSize += size
	}
	flush()
	return chunks
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
