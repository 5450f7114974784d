package repo_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veltrane/ragchat/internal/model"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/test/testutil"
)

func randomID(t *testing.T) string {
	t.Helper()
	bytes := make([]byte, 16)
	_, err := rand.Read(bytes)
	require.NoError(t, err)
	return hex.EncodeToString(bytes)
}

func TestConversationRepoOwnership(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	owner := randomID(t)
	conv := &model.Conversation{
		ID:     randomID(t),
		UserID: owner,
		Title:  "New Chat",
		Ctime:  time.Now().Unix(),
	}
	require.NoError(t, convs.Create(context.Background(), conv))

	got, err := convs.GetByID(context.Background(), owner, conv.ID)
	require.NoError(t, err)
	require.Equal(t, conv.Title, got.Title)

	_, err = convs.GetByID(context.Background(), randomID(t), conv.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestConversationRepoListNewestFirst(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	owner := randomID(t)
	base := time.Now().Unix()
	older := &model.Conversation{ID: randomID(t), UserID: owner, Title: "older", Ctime: base - 10}
	newer := &model.Conversation{ID: randomID(t), UserID: owner, Title: "newer", Ctime: base}
	require.NoError(t, convs.Create(context.Background(), older))
	require.NoError(t, convs.Create(context.Background(), newer))

	items, err := convs.ListByUser(context.Background(), owner, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "newer", items[0].Title)
	require.Equal(t, "older", items[1].Title)
}

func TestMessageRepoListOldestFirst(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	msgs := repo.NewMessageRepo(db)
	convID := randomID(t)
	base := time.Now().Unix()
	require.NoError(t, msgs.Create(context.Background(), &model.Message{
		ID: randomID(t), ConversationID: convID, Role: model.MessageRoleUser, Content: "question", Ctime: base,
	}))
	require.NoError(t, msgs.Create(context.Background(), &model.Message{
		ID: randomID(t), ConversationID: convID, Role: model.MessageRoleAssistant, Content: "answer", Ctime: base + 1,
	}))

	items, err := msgs.ListByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, model.MessageRoleUser, items[0].Role)
	require.Equal(t, model.MessageRoleAssistant, items[1].Role)
}
