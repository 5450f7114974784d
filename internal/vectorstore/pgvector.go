package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

type pgvectorStore struct {
	db         *sql.DB
	collection string
}

func newPgvectorStore(args FactoryArgs) (Store, error) {
	if args.DB == nil {
		return nil, fmt.Errorf("pgvector store requires a database handle")
	}
	if args.Collection == "" {
		return nil, fmt.Errorf("pgvector store requires a collection name")
	}
	return &pgvectorStore{db: args.DB, collection: args.Collection}, nil
}

func (s *pgvectorStore) Upsert(ctx context.Context, entries []Entry) error {
	const query = `
		INSERT INTO vector_chunks (id, collection, content, filename, user_id, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			filename = EXCLUDED.filename,
			user_id = EXCLUDED.user_id,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	now := time.Now().Unix()
	for _, entry := range entries {
		_, err := s.db.ExecContext(ctx, query,
			entry.ID,
			s.collection,
			entry.Text,
			entry.Metadata["filename"],
			entry.Metadata["user_id"],
			pgvector.NewVector(entry.Vector),
			now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *pgvectorStore) Query(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 4
	}
	// Cosine distance; score is flipped so higher means closer.
	const query = `
		SELECT content, filename, user_id, 1 - (embedding <=> $1) AS score
		FROM vector_chunks
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), s.collection, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []Result
	for rows.Next() {
		var item Result
		var filename, userID string
		if err := rows.Scan(&item.Text, &filename, &userID, &item.Score); err != nil {
			return nil, err
		}
		item.Metadata = map[string]string{"filename": filename, "user_id": userID}
		results = append(results, item)
	}
	return results, rows.Err()
}

func init() {
	Register("pgvector", newPgvectorStore)
}
