package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/errcode"
	"github.com/veltrane/ragchat/internal/pkg/response"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/internal/service"
)

type RagHandler struct {
	documents *service.DocumentService
}

func NewRagHandler(documents *service.DocumentService) *RagHandler {
	return &RagHandler{documents: documents}
}

type uploadResponse struct {
	Document *model.Document `json:"document"`
	Chunks   int             `json:"chunks"`
	Pending  bool            `json:"pending"`
}

func (h *RagHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer func() { _ = opened.Close() }()
	doc, chunks, err := h.documents.Upload(c.Request.Context(), getUserID(c), file.Filename, opened)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, uploadResponse{
		Document: doc,
		Chunks:   chunks,
		Pending:  doc.State == repo.DocumentStatePending,
	})
}

func (h *RagHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, docs)
}
