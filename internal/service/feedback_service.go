package service

import (
	"context"
	"strings"

	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/pkg/timeutil"
	"github.com/veltrane/ragchat/internal/repo"
)

const maxFeedbackCommentChars = 2000

type FeedbackService struct {
	feedback *repo.FeedbackRepo
	messages *repo.MessageRepo
	convs    *repo.ConversationRepo
}

func NewFeedbackService(feedback *repo.FeedbackRepo, messages *repo.MessageRepo, convs *repo.ConversationRepo) *FeedbackService {
	return &FeedbackService{feedback: feedback, messages: messages, convs: convs}
}

// Save rates a message. Ownership is checked through the message's
// conversation, and a repeat rating replaces the earlier one.
func (s *FeedbackService) Save(ctx context.Context, userID, messageID string, rating int, comment string) error {
	if rating != 1 && rating != -1 {
		return appErr.ErrInvalid
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxFeedbackCommentChars {
		return appErr.ErrInvalid
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := s.convs.GetByID(ctx, userID, msg.ConversationID); err != nil {
		return err
	}
	return s.feedback.Save(ctx, newID(), messageID, rating, comment, timeutil.NowUnix())
}
