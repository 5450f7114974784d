package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veltrane/ragchat/internal/middleware"
	"github.com/veltrane/ragchat/internal/pkg/response"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Conversations *ConversationHandler
	Rag           *RagHandler
	Feedback      *FeedbackHandler
	JWTSecret     []byte
	AuthRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	authRoutes := api.Group("")
	if deps.AuthRateLimit > 0 {
		authRoutes.Use(middleware.RateLimit(deps.AuthRateLimit))
	}
	authRoutes.POST("/auth/signup", deps.Auth.Signup)
	authRoutes.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/users/me", deps.Auth.Me)

	authGroup.POST("/conversations", deps.Conversations.Create)
	authGroup.GET("/conversations", deps.Conversations.List)
	authGroup.GET("/conversations/:id", deps.Conversations.Get)
	authGroup.POST("/conversations/:id/messages", deps.Conversations.SendMessage)

	authGroup.POST("/rag/upload", deps.Rag.Upload)
	authGroup.GET("/rag/documents", deps.Rag.ListDocuments)

	authGroup.POST("/messages/:id/feedback", deps.Feedback.Submit)
}
