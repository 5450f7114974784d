package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veltrane/ragchat/internal/config"
	"github.com/veltrane/ragchat/internal/filestore"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/rag"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/internal/service"
	"github.com/veltrane/ragchat/internal/vectorstore"
	"github.com/veltrane/ragchat/test/testutil"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "answer", nil
}

func newLocalStore(t *testing.T) filestore.Store {
	t.Helper()
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func newRag(store vectorstore.Store, embedder *stubEmbedder) *service.RagService {
	return service.NewRagService(rag.NewPlainChunker(1000, 200), embedder, stubGenerator{}, store, 4, 0)
}

func TestDocumentServiceUploadReady(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docRepo := repo.NewDocumentRepo(db)
	files := newLocalStore(t)
	docs := service.NewDocumentService(docRepo, files, newRag(vectorstore.NewMemoryStore(), &stubEmbedder{}))

	doc, chunks, err := docs.Upload(context.Background(), "user-1", "notes.txt", strings.NewReader("some grounded content"))
	require.NoError(t, err)
	require.Equal(t, repo.DocumentStateReady, doc.State)
	require.Equal(t, 1, chunks)

	rc, err := files.Open(context.Background(), doc.FilePath)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}

func TestDocumentServiceRejectsUnsupportedExtension(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := service.NewDocumentService(repo.NewDocumentRepo(db), newLocalStore(t), newRag(vectorstore.NewMemoryStore(), &stubEmbedder{}))
	_, _, err := docs.Upload(context.Background(), "user-1", "report.pdf", strings.NewReader("content"))
	require.ErrorIs(t, err, appErr.ErrInvalidFile)
}

func TestDocumentServicePendingThenReingested(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docRepo := repo.NewDocumentRepo(db)
	files := newLocalStore(t)
	vectors := vectorstore.NewMemoryStore()

	broken := service.NewDocumentService(docRepo, files, newRag(vectors, &stubEmbedder{err: errors.New("embedder down")}))
	doc, chunks, err := broken.Upload(context.Background(), "user-1", "notes.txt", strings.NewReader("retry me later"))
	require.NoError(t, err)
	require.Equal(t, repo.DocumentStatePending, doc.State)
	require.Zero(t, chunks)

	healthy := service.NewDocumentService(docRepo, files, newRag(vectors, &stubEmbedder{}))
	done, err := healthy.ReingestPending(context.Background(), time.Now().Unix()+1, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, done, 1)

	items, err := docRepo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	var found bool
	for _, item := range items {
		if item.ID == doc.ID {
			found = true
			require.Equal(t, repo.DocumentStateReady, item.State)
		}
	}
	require.True(t, found)
}
