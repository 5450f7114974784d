package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/veltrane/ragchat/internal/ai"
	"github.com/veltrane/ragchat/internal/rag"
	"github.com/veltrane/ragchat/internal/vectorstore"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// PromptBudget caps how much retrieved context is stuffed into the prompt.
// The default keeps everything the retriever returned.
type PromptBudget interface {
	Fit(chunks []string) []string
}

type unboundedBudget struct{}

func (unboundedBudget) Fit(chunks []string) []string { return chunks }

type charBudget struct {
	maxChars int
}

// NewCharBudget drops whole chunks from the tail once the running total
// passes maxChars. The first chunk is always kept.
func NewCharBudget(maxChars int) PromptBudget {
	return &charBudget{maxChars: maxChars}
}

func (b *charBudget) Fit(chunks []string) []string {
	if b.maxChars <= 0 || len(chunks) == 0 {
		return chunks
	}
	total := 0
	for i, chunk := range chunks {
		total += len(chunk)
		if i > 0 && total > b.maxChars {
			return chunks[:i]
		}
	}
	return chunks
}

type RagService struct {
	chunker   rag.Chunker
	embedder  ai.IEmbedder
	generator ai.IGenerator
	vectors   vectorstore.Store
	topK      int
	timeout   time.Duration
	budget    PromptBudget
}

type RagOption func(*RagService)

func WithPromptBudget(b PromptBudget) RagOption {
	return func(s *RagService) {
		if b != nil {
			s.budget = b
		}
	}
}

func NewRagService(chunker rag.Chunker, embedder ai.IEmbedder, generator ai.IGenerator, vectors vectorstore.Store, topK int, timeout time.Duration, opts ...RagOption) *RagService {
	if topK <= 0 {
		topK = 4
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &RagService{
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		vectors:   vectors,
		topK:      topK,
		timeout:   timeout,
		budget:    unboundedBudget{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest chunks the document, embeds every chunk, and upserts the batch.
// Chunk ids are derived from the document id, so replaying the same document
// overwrites its previous chunks instead of accumulating copies.
func (s *RagService) Ingest(ctx context.Context, docID, userID, filename, text string) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID), zap.String("filename", filename))
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		logger.Info("document produced no chunks, skipping")
		return 0, nil
	}
	entries := make([]vectorstore.Entry, 0, len(chunks))
	for i, chunk := range chunks {
		emb, err := s.embedder.Embed(ctx, chunk, taskTypeDocument)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		entries = append(entries, vectorstore.Entry{
			ID:     fmt.Sprintf("%s:%d", docID, i),
			Vector: emb,
			Text:   chunk,
			Metadata: map[string]string{
				"filename": filename,
				"user_id":  userID,
			},
		})
	}
	if err := s.vectors.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	logger.Info("document ingested", zap.Int("chunks", len(entries)))
	return len(entries), nil
}

// Retrieve embeds the query and returns the closest chunk texts. It never
// fails the request: any embedding or search error is logged and an empty
// context is returned so the chat can still answer from the model alone.
func (s *RagService) Retrieve(ctx context.Context, query string) []string {
	logger := logutil.GetLogger(ctx)
	emb, err := s.embedder.Embed(ctx, query, taskTypeQuery)
	if err != nil {
		logger.Warn("failed to embed query, answering without context", zap.Error(err))
		return nil
	}
	results, err := s.vectors.Query(ctx, emb, s.topK)
	if err != nil {
		logger.Warn("vector search failed, answering without context", zap.Error(err))
		return nil
	}
	chunks := make([]string, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Text)
	}
	return chunks
}

// Generate builds the grounded prompt and asks the model for an answer.
func (s *RagService) Generate(ctx context.Context, query string, chunks []string) (string, error) {
	prompt := BuildPrompt(query, s.budget.Fit(chunks))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func BuildPrompt(query string, chunks []string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. Use the following context to answer the question.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(chunks, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// FallbackMessage converts a generation failure into the assistant reply
// that gets persisted in its place.
func FallbackMessage(err error) string {
	if errors.Is(err, ai.ErrUnavailable) {
		return "System Error: OpenRouter API Key is missing."
	}
	return "Sorry, I encountered an error: " + err.Error()
}
