package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veltrane/ragchat/internal/pkg/errcode"
	"github.com/veltrane/ragchat/internal/pkg/response"
	"github.com/veltrane/ragchat/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
}

func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.feedback.Save(c.Request.Context(), getUserID(c), c.Param("id"), req.Rating, req.Comment); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
