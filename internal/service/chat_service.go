package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/veltrane/ragchat/internal/model"
	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/pkg/timeutil"
)

// ConversationStore is the slice of the conversation repo the chat flow
// needs. GetByID must only match conversations owned by userID.
type ConversationStore interface {
	GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
}

// Pipeline is the retrieval-then-generation half of the chat turn,
// satisfied by RagService.
type Pipeline interface {
	Retrieve(ctx context.Context, query string) []string
	Generate(ctx context.Context, query string, chunks []string) (string, error)
}

type ChatService struct {
	convs    ConversationStore
	messages MessageStore
	pipeline Pipeline
	maxInput int
}

func NewChatService(convs ConversationStore, messages MessageStore, pipeline Pipeline, maxInput int) *ChatService {
	return &ChatService{convs: convs, messages: messages, pipeline: pipeline, maxInput: maxInput}
}

// SendMessage runs one chat turn: persist the user message, retrieve
// context, generate, persist the reply. A generation failure still produces
// a persisted assistant message carrying the fallback text, so the
// transcript stays in user/assistant pairs.
func (s *ChatService) SendMessage(ctx context.Context, userID, convID, content string) (*model.Message, *model.Message, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("conversation_id", convID))
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, appErr.ErrInvalid
	}
	if s.maxInput > 0 && len(content) > s.maxInput {
		return nil, nil, appErr.ErrInvalid
	}
	if _, err := s.convs.GetByID(ctx, userID, convID); err != nil {
		return nil, nil, err
	}
	userMsg := &model.Message{
		ID:             newID(),
		ConversationID: convID,
		Role:           model.MessageRoleUser,
		Content:        content,
		Ctime:          timeutil.NowUnix(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, nil, err
	}
	chunks := s.pipeline.Retrieve(ctx, content)
	answer, err := s.pipeline.Generate(ctx, content, chunks)
	if err != nil {
		logger.Warn("generation failed, persisting fallback reply", zap.Error(err))
		answer = FallbackMessage(err)
	}
	assistantMsg := &model.Message{
		ID:             newID(),
		ConversationID: convID,
		Role:           model.MessageRoleAssistant,
		Content:        answer,
		Ctime:          timeutil.NowUnix(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, nil, err
	}
	return userMsg, assistantMsg, nil
}
