package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/dbutil"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
)

const (
	// Document row exists but vector ingestion has not been confirmed yet.
	DocumentStatePending = 1
	DocumentStateReady   = 2
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":        doc.ID,
		"user_id":   doc.UserID,
		"filename":  doc.Filename,
		"file_path": doc.FilePath,
		"state":     doc.State,
		"ctime":     doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) UpdateState(ctx context.Context, docID string, state int) error {
	where := map[string]interface{}{"id": docID}
	update := map[string]interface{}{"state": state}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id", "user_id", "filename", "file_path", "state", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.queryList(ctx, sqlStr, args)
}

// ListPendingBefore returns documents still waiting on vector ingestion that
// were created at or before cutoff, oldest first.
func (r *DocumentRepo) ListPendingBefore(ctx context.Context, cutoff int64, limit int) ([]model.Document, error) {
	const query = `
		SELECT id, user_id, filename, file_path, state, ctime
		FROM documents
		WHERE state = $1 AND ctime <= $2
		ORDER BY ctime
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, DocumentStatePending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDocuments(rows)
}

func (r *DocumentRepo) queryList(ctx context.Context, sqlStr string, args []interface{}) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.FilePath, &doc.State, &doc.Ctime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
