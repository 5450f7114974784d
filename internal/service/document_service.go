package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/veltrane/ragchat/internal/filestore"
	"github.com/veltrane/ragchat/internal/model"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/pkg/timeutil"
	"github.com/veltrane/ragchat/internal/repo"
)

// maxUploadBytes bounds a single document upload.
const maxUploadBytes = 10 << 20

type DocumentService struct {
	docs  *repo.DocumentRepo
	files filestore.Store
	rag   *RagService
}

func NewDocumentService(docs *repo.DocumentRepo, files filestore.Store, rag *RagService) *DocumentService {
	return &DocumentService{docs: docs, files: files, rag: rag}
}

// Upload validates and persists the raw file first, then runs ingestion. If
// ingestion fails the document stays pending and the reindex job retries it
// from the stored copy.
func (s *DocumentService) Upload(ctx context.Context, userID, filename string, r io.Reader) (*model.Document, int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("filename", filename))
	if err := validateFilename(filename); err != nil {
		return nil, 0, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, 0, err
	}
	if len(data) > maxUploadBytes {
		return nil, 0, appErr.ErrInvalidFile
	}
	if !utf8.Valid(data) {
		return nil, 0, appErr.ErrInvalidFile
	}
	doc := &model.Document{
		ID:       newID(),
		UserID:   userID,
		Filename: filename,
		State:    repo.DocumentStatePending,
		Ctime:    timeutil.NowUnix(),
	}
	doc.FilePath = doc.ID + path.Ext(filename)
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, 0, err
	}
	if err := s.files.Save(ctx, doc.FilePath, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, 0, fmt.Errorf("save raw document: %w", err)
	}
	chunks, err := s.rag.Ingest(ctx, doc.ID, userID, filename, string(data))
	if err != nil {
		logger.Warn("ingestion failed, left pending for retry", zap.Error(err))
		return doc, 0, nil
	}
	if err := s.docs.UpdateState(ctx, doc.ID, repo.DocumentStateReady); err != nil {
		return nil, 0, err
	}
	doc.State = repo.DocumentStateReady
	return doc, chunks, nil
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]model.Document, error) {
	return s.docs.ListByUser(ctx, userID)
}

// ReingestPending retries ingestion for documents that were uploaded at or
// before cutoff but never reached the ready state. Returns how many made it.
func (s *DocumentService) ReingestPending(ctx context.Context, cutoff int64, limit int) (int, error) {
	logger := logutil.GetLogger(ctx)
	docs, err := s.docs.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, doc := range docs {
		if err := s.reingestOne(ctx, &doc); err != nil {
			logger.Warn("reingest failed", zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *DocumentService) reingestOne(ctx context.Context, doc *model.Document) error {
	rc, err := s.files.Open(ctx, doc.FilePath)
	if err != nil {
		return fmt.Errorf("open raw document: %w", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	if _, err := s.rag.Ingest(ctx, doc.ID, doc.UserID, doc.Filename, string(data)); err != nil {
		return err
	}
	return s.docs.UpdateState(ctx, doc.ID, repo.DocumentStateReady)
}

func validateFilename(filename string) error {
	name := strings.TrimSpace(filename)
	if name == "" {
		return appErr.ErrInvalidFile
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".md":
		return nil
	default:
		return appErr.ErrInvalidFile
	}
}
