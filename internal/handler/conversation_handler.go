package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/errcode"
	"github.com/veltrane/ragchat/internal/pkg/response"
	"github.com/veltrane/ragchat/internal/service"
)

type ConversationHandler struct {
	convs *service.ConversationService
	chat  *service.ChatService
}

func NewConversationHandler(convs *service.ConversationService, chat *service.ChatService) *ConversationHandler {
	return &ConversationHandler{convs: convs, chat: chat}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type conversationDetail struct {
	*model.Conversation
	Messages []model.Message `json:"messages"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      *model.Message `json:"user_message"`
	AssistantMessage *model.Message `json:"assistant_message"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	conv, err := h.convs.Create(c.Request.Context(), getUserID(c), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.convs.List(c.Request.Context(), getUserID(c), 0)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, convs)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	conv, msgs, err := h.convs.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	response.Success(c, conversationDetail{Conversation: conv, Messages: msgs})
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	userMsg, assistantMsg, err := h.chat.SendMessage(c.Request.Context(), getUserID(c), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}
