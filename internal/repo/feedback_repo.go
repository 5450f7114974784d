package repo

import (
	"context"
	"database/sql"
)

type FeedbackRepo struct {
	db *sql.DB
}

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Save keeps at most one feedback row per message; a second rating replaces
// the first.
func (r *FeedbackRepo) Save(ctx context.Context, id, messageID string, rating int, comment string, ctime int64) error {
	const query = `
		INSERT INTO feedback (id, message_id, rating, comment, ctime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query, id, messageID, rating, comment, ctime)
	return err
}
