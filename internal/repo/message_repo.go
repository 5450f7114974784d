package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/dbutil"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"role":            msg.Role,
		"content":         msg.Content,
		"ctime":           msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, msgID string) (*model.Message, error) {
	where := map[string]interface{}{"id": msgID}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"id", "conversation_id", "role", "content", "ctime"})
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
	var msg model.Message
	if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Ctime); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) ListByConversation(ctx context.Context, convID string) ([]model.Message, error) {
	where := map[string]interface{}{
		"conversation_id": convID,
		"_orderby":        "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"id", "conversation_id", "role", "content", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Ctime); err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	return items, rows.Err()
}
