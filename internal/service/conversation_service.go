package service

import (
	"context"
	"strings"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/timeutil"
	"github.com/veltrane/ragchat/internal/repo"
)

const defaultConversationTitle = "New Chat"

type ConversationService struct {
	convs    *repo.ConversationRepo
	messages *repo.MessageRepo
}

func NewConversationService(convs *repo.ConversationRepo, messages *repo.MessageRepo) *ConversationService {
	return &ConversationService{convs: convs, messages: messages}
}

func (s *ConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	conv := &model.Conversation{
		ID:     newID(),
		UserID: userID,
		Title:  title,
		Ctime:  timeutil.NowUnix(),
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, userID string, limit uint) ([]model.Conversation, error) {
	return s.convs.ListByUser(ctx, userID, limit)
}

// Get returns the conversation with its full message history, oldest first.
func (s *ConversationService) Get(ctx context.Context, userID, convID string) (*model.Conversation, []model.Message, error) {
	conv, err := s.convs.GetByID(ctx, userID, convID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}
