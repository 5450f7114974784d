package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veltrane/ragchat/internal/ai"
	"github.com/veltrane/ragchat/internal/model"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
)

type fakeConvStore struct {
	ownerID string
	convID  string
}

func (f *fakeConvStore) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	if userID != f.ownerID || convID != f.convID {
		return nil, appErr.ErrNotFound
	}
	return &model.Conversation{ID: convID, UserID: userID, Title: "New Chat"}, nil
}

type fakeMsgStore struct {
	saved []*model.Message
}

func (f *fakeMsgStore) Create(ctx context.Context, msg *model.Message) error {
	f.saved = append(f.saved, msg)
	return nil
}

type fakePipeline struct {
	chunks []string
	answer string
	err    error
}

func (f *fakePipeline) Retrieve(ctx context.Context, query string) []string {
	return f.chunks
}

func (f *fakePipeline) Generate(ctx context.Context, query string, chunks []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestChatService(msgs *fakeMsgStore, pipeline *fakePipeline) *ChatService {
	convs := &fakeConvStore{ownerID: "user-1", convID: "conv-1"}
	return NewChatService(convs, msgs, pipeline, 8192)
}

func TestChatServiceSendMessagePersistsPair(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{answer: "the capital is Tokyo"})

	userMsg, assistantMsg, err := svc.SendMessage(context.Background(), "user-1", "conv-1", "what is the capital?")
	require.NoError(t, err)
	require.Equal(t, model.MessageRoleUser, userMsg.Role)
	require.Equal(t, "what is the capital?", userMsg.Content)
	require.Equal(t, model.MessageRoleAssistant, assistantMsg.Role)
	require.Equal(t, "the capital is Tokyo", assistantMsg.Content)
	require.Len(t, msgs.saved, 2)
	require.Equal(t, "conv-1", msgs.saved[0].ConversationID)
	require.Equal(t, "conv-1", msgs.saved[1].ConversationID)
}

func TestChatServiceWrongOwnerWritesNothing(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{answer: "x"})

	_, _, err := svc.SendMessage(context.Background(), "user-2", "conv-1", "hello")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Empty(t, msgs.saved)
}

func TestChatServiceRejectsEmptyContent(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{answer: "x"})

	_, _, err := svc.SendMessage(context.Background(), "user-1", "conv-1", "   \n\t ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Empty(t, msgs.saved)
}

func TestChatServiceRejectsOversizedContent(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{answer: "x"})

	_, _, err := svc.SendMessage(context.Background(), "user-1", "conv-1", strings.Repeat("a", 8193))
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Empty(t, msgs.saved)
}

func TestChatServiceGenerationFailurePersistsFallback(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{err: errors.New("model exploded")})

	_, assistantMsg, err := svc.SendMessage(context.Background(), "user-1", "conv-1", "hello")
	require.NoError(t, err)
	require.Equal(t, "Sorry, I encountered an error: model exploded", assistantMsg.Content)
	require.Len(t, msgs.saved, 2)
	require.Equal(t, assistantMsg.Content, msgs.saved[1].Content)
}

func TestChatServiceMissingCredentialPersistsSystemError(t *testing.T) {
	msgs := &fakeMsgStore{}
	svc := newTestChatService(msgs, &fakePipeline{err: fmt.Errorf("generate: %w", ai.ErrUnavailable)})

	_, assistantMsg, err := svc.SendMessage(context.Background(), "user-1", "conv-1", "hello")
	require.NoError(t, err)
	require.Equal(t, "System Error: OpenRouter API Key is missing.", assistantMsg.Content)
	require.Len(t, msgs.saved, 2)
}
