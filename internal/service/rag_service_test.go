package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veltrane/ragchat/internal/ai"
	"github.com/veltrane/ragchat/internal/rag"
	"github.com/veltrane/ragchat/internal/vectorstore"
)

type fakeEmbedder struct {
	err   error
	calls int
}

// Embed maps text to a byte-frequency vector, so identical texts embed
// identically and retrieval behaves deterministically.
func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, 8)
	for i := 0; i < len(text); i++ {
		vec[int(text[i])%8]++
	}
	return vec, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	return errors.New("store down")
}

func (failingStore) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Result, error) {
	return nil, errors.New("store down")
}

func newTestRagService(store vectorstore.Store, embedder ai.IEmbedder, gen ai.IGenerator) *RagService {
	chunker := rag.NewPlainChunker(1000, 200)
	return NewRagService(chunker, embedder, gen, store, 4, 0)
}

func TestRagServiceIngestAndRetrieve(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	embedder := &fakeEmbedder{}
	svc := newTestRagService(store, embedder, &fakeGenerator{answer: "ok"})

	text := "Tokyo is the capital of Japan and its largest city."
	chunks, err := svc.Ingest(context.Background(), "doc-1", "user-1", "japan.txt", text)
	require.NoError(t, err)
	require.Equal(t, 1, chunks)

	got := svc.Retrieve(context.Background(), "Tokyo is the capital of Japan and its largest city.")
	require.Len(t, got, 1)
	require.Equal(t, text, got[0])
}

func TestRagServiceIngestSameDocumentIsIdempotent(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	svc := newTestRagService(store, &fakeEmbedder{}, &fakeGenerator{answer: "ok"})

	text := strings.Repeat("content ", 400)
	first, err := svc.Ingest(context.Background(), "doc-1", "user-1", "a.txt", text)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "doc-1", "user-1", "a.txt", text)
	require.NoError(t, err)
	require.Equal(t, first, second)

	counter, ok := store.(interface{ Len() int })
	require.True(t, ok)
	require.Equal(t, first, counter.Len())
}

func TestRagServiceReuploadAddsNewChunks(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	svc := newTestRagService(store, &fakeEmbedder{}, &fakeGenerator{answer: "ok"})

	text := strings.Repeat("content ", 400)
	first, err := svc.Ingest(context.Background(), "doc-1", "user-1", "a.txt", text)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "doc-2", "user-1", "a.txt", text)
	require.NoError(t, err)

	counter := store.(interface{ Len() int })
	require.Equal(t, 2*first, counter.Len())
}

func TestRagServiceIngestEmptyDocument(t *testing.T) {
	svc := newTestRagService(vectorstore.NewMemoryStore(), &fakeEmbedder{}, &fakeGenerator{})
	chunks, err := svc.Ingest(context.Background(), "doc-1", "user-1", "empty.txt", "")
	require.NoError(t, err)
	require.Zero(t, chunks)
}

func TestRagServiceRetrieveSwallowsEmbedError(t *testing.T) {
	svc := newTestRagService(vectorstore.NewMemoryStore(), &fakeEmbedder{err: errors.New("embed down")}, &fakeGenerator{})
	require.Empty(t, svc.Retrieve(context.Background(), "anything"))
}

func TestRagServiceRetrieveSwallowsStoreError(t *testing.T) {
	svc := newTestRagService(failingStore{}, &fakeEmbedder{}, &fakeGenerator{})
	require.Empty(t, svc.Retrieve(context.Background(), "anything"))
}

func TestRagServiceGeneratePromptShape(t *testing.T) {
	gen := &fakeGenerator{answer: "42"}
	svc := newTestRagService(vectorstore.NewMemoryStore(), &fakeEmbedder{}, gen)

	answer, err := svc.Generate(context.Background(), "what is the answer", []string{"chunk one", "chunk two"})
	require.NoError(t, err)
	require.Equal(t, "42", answer)
	require.Equal(t,
		"You are a helpful assistant. Use the following context to answer the question.\n\n"+
			"Context:\nchunk one\n\nchunk two\n\n"+
			"Question: what is the answer\n\nAnswer:",
		gen.prompt)
}

func TestFallbackMessage(t *testing.T) {
	require.Equal(t, "System Error: OpenRouter API Key is missing.", FallbackMessage(ai.ErrUnavailable))
	require.Equal(t, "Sorry, I encountered an error: boom", FallbackMessage(errors.New("boom")))
}

func TestCharBudgetKeepsFirstChunk(t *testing.T) {
	budget := NewCharBudget(10)
	chunks := []string{strings.Repeat("a", 50), "b", "c"}
	require.Equal(t, chunks[:1], budget.Fit(chunks))
}

func TestCharBudgetTrimsTail(t *testing.T) {
	budget := NewCharBudget(10)
	chunks := []string{"12345", "12345", "12345"}
	require.Equal(t, chunks[:2], budget.Fit(chunks))
}
