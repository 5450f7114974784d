package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veltrane/ragchat/internal/model"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/test/testutil"
)

func TestDocumentRepoStateTransitions(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	owner := randomID(t)
	doc := &model.Document{
		ID:       randomID(t),
		UserID:   owner,
		Filename: "notes.txt",
		FilePath: "notes-key.txt",
		State:    repo.DocumentStatePending,
		Ctime:    time.Now().Unix(),
	}
	require.NoError(t, docs.Create(context.Background(), doc))

	items, err := docs.ListByUser(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, repo.DocumentStatePending, items[0].State)

	require.NoError(t, docs.UpdateState(context.Background(), doc.ID, repo.DocumentStateReady))
	items, err = docs.ListByUser(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, repo.DocumentStateReady, items[0].State)

	require.ErrorIs(t, docs.UpdateState(context.Background(), randomID(t), repo.DocumentStateReady), appErr.ErrNotFound)
}

func TestDocumentRepoListPendingBefore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	owner := randomID(t)
	now := time.Now().Unix()

	stale := &model.Document{ID: randomID(t), UserID: owner, Filename: "a.txt", FilePath: "a", State: repo.DocumentStatePending, Ctime: now - 600}
	fresh := &model.Document{ID: randomID(t), UserID: owner, Filename: "b.txt", FilePath: "b", State: repo.DocumentStatePending, Ctime: now}
	done := &model.Document{ID: randomID(t), UserID: owner, Filename: "c.txt", FilePath: "c", State: repo.DocumentStateReady, Ctime: now - 600}
	for _, doc := range []*model.Document{stale, fresh, done} {
		require.NoError(t, docs.Create(context.Background(), doc))
	}

	pending, err := docs.ListPendingBefore(context.Background(), now-120, 100)
	require.NoError(t, err)

	ids := make(map[string]bool, len(pending))
	for _, doc := range pending {
		ids[doc.ID] = true
	}
	require.True(t, ids[stale.ID])
	require.False(t, ids[fresh.ID])
	require.False(t, ids[done.ID])
}

func TestFeedbackRepoSecondRatingReplacesFirst(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	feedback := repo.NewFeedbackRepo(db)
	messageID := randomID(t)
	now := time.Now().Unix()

	require.NoError(t, feedback.Save(context.Background(), randomID(t), messageID, 1, "good", now))
	require.NoError(t, feedback.Save(context.Background(), randomID(t), messageID, -1, "changed my mind", now+1))

	var rating int
	var comment string
	row := db.QueryRow("SELECT rating, comment FROM feedback WHERE message_id = $1", messageID)
	require.NoError(t, row.Scan(&rating, &comment))
	require.Equal(t, -1, rating)
	require.Equal(t, "changed my mind", comment)
}
