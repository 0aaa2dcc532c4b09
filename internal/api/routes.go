package api

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up every route on the gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)
	router.GET("/ws", gin.WrapF(s.hub.Handler(s.ws)))

	v1 := router.Group("/api/v1")

	chats := v1.Group("/chats")
	chats.POST("", s.handleCreateChat)
	chats.GET("", s.handleListChats)
	chats.GET("/:id", s.handleGetChat)
	chats.DELETE("/:id", s.handleDeleteChat)
	chats.POST("/:id/messages", s.handleSendMessage)
	chats.GET("/:id/messages", s.handleChatMessages)
	chats.PATCH("/:id/status", s.handleUpdateStatus)
	chats.PATCH("/:id/operator", s.handleAssignOperator)
	chats.POST("/:id/read", s.handleMarkRead)
	chats.GET("/:id/unread", s.handleChatUnread)

	v1.GET("/users/:id/chats", s.handleUserChats)
	v1.GET("/affiliates/:id/chats", s.handleAffiliateChats)
	v1.GET("/guests/:id/chats", s.handleGuestChats)
	v1.GET("/operators/:id/chats", s.handleOperatorChats)

	v1.GET("/messages/sender", s.handleMessagesBySender)
	v1.GET("/messages/counterparty", s.handleMessagesByCounterparty)

	v1.GET("/unread", s.handleUnread)

	replies := v1.Group("/auto-replies")
	replies.GET("", s.handleListAutoReplies)
	replies.POST("", s.handleCreateAutoReply)
	replies.GET("/:id", s.handleGetAutoReply)
	replies.PATCH("/:id", s.handleUpdateAutoReply)
	replies.DELETE("/:id", s.handleDeleteAutoReply)
}
