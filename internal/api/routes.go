package api

import (
	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/presence"
	"couple_compass_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc, chatService *services.ChatService, invitationService *services.InvitationService, tracker *presence.Tracker) {
	api := r.Group("/api")
	chat := api.Group("/chat", authMiddleware)
	{
		chat.POST("/sessions", createSessionHandler(chatService))
		chat.GET("/sessions", listSessionsHandler(chatService))
		chat.GET("/sessions/:session_id", getSessionHandler(chatService, tracker))
		chat.DELETE("/sessions/:session_id", deleteSessionHandler(chatService))
		chat.POST("/sessions/:session_id/messages", sendMessageHandler(chatService))
		chat.GET("/sessions/:session_id/history", getHistoryHandler(chatService))
		chat.PUT("/sessions/:session_id/title", renameSessionHandler(chatService))
		chat.POST("/sessions/:session_id/summary", summarizeSessionHandler(chatService))
		chat.POST("/sessions/:session_id/invite", invitePartnerHandler(invitationService))
		chat.POST("/sessions/:session_id/leave", leaveSessionHandler(invitationService))
		chat.GET("/invitations", listInvitationsHandler(invitationService))
		chat.POST("/invitations/:invitation_id/accept", acceptInvitationHandler(invitationService))
		chat.POST("/invitations/:invitation_id/decline", declineInvitationHandler(invitationService))
		chat.GET("/stats", statsHandler(chatService))
	}
}

// currentUser pulls the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
