package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/veltrane/ragchat/internal/model"
	"github.com/veltrane/ragchat/internal/pkg/errcode"
	"github.com/veltrane/ragchat/internal/pkg/response"
	"github.com/veltrane/ragchat/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		response.Error(c, errcode.ErrInvalid, "valid email required")
		return
	}
	if len(req.Password) < 8 {
		response.Error(c, errcode.ErrInvalid, "password must be at least 8 characters")
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}
