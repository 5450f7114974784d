package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/dbutil"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":      conv.ID,
		"user_id": conv.UserID,
		"title":   conv.Title,
		"ctime":   conv.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetByID only returns the conversation when it belongs to userID.
func (r *ConversationRepo) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	where := map[string]interface{}{
		"id":      convID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id", "user_id", "title", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var conv model.Conversation
	if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit uint) ([]model.Conversation, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{limit}
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id", "user_id", "title", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime); err != nil {
			return nil, err
		}
		items = append(items, conv)
	}
	return items, rows.Err()
}
