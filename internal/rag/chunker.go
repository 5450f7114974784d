package rag

import "fmt"

// Chunker splits document text into retrieval-granularity segments.
type Chunker interface {
	Chunk(text string) []string
}

func New(kind string, maxSize, overlap int) (Chunker, error) {
	switch kind {
	case "", "plain":
		return NewPlainChunker(maxSize, overlap), nil
	case "markdown":
		return NewMarkdownChunker(maxSize, overlap), nil
	default:
		return nil, fmt.Errorf("unsupported chunker: %s", kind)
	}
}

type plainChunker struct {
	maxSize int
	overlap int
}

// NewPlainChunker returns a fixed-size sliding-window chunker. Each chunk
// holds at most maxSize characters and every chunk after the first starts
// maxSize-overlap characters after the previous chunk's start.
func NewPlainChunker(maxSize, overlap int) Chunker {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = maxSize / 5
	}
	return &plainChunker{maxSize: maxSize, overlap: overlap}
}

func (c *plainChunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.maxSize {
		return []string{text}
	}
	step := c.maxSize - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
