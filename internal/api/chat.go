package api

import (
	"net/http"
	"strconv"

	"couple_compass_go_backend/internal/errors"
	"couple_compass_go_backend/internal/presence"
	"couple_compass_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func createSessionHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}

		var request struct {
			Title       string                 `json:"title"`
			SessionType string                 `json:"session_type"`
			Topic       string                 `json:"topic"`
			Metadata    map[string]interface{} `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		session, err := chatService.CreateSession(user.ID, services.CreateSessionInput{
			Title:       request.Title,
			SessionType: request.SessionType,
			Topic:       request.Topic,
			Metadata:    request.Metadata,
		})
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

func listSessionsHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		sessions, err := chatService.ListSessions(user.ID, limit, offset)
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

func getSessionHandler(chatService *services.ChatService, tracker *presence.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		session, messages, svcErr := chatService.GetSessionWithMessages(sessionID, user.ID)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		response := gin.H{
			"session":  session,
			"messages": messages,
		}
		if session.PartnerUserID != nil {
			partnerID := *session.PartnerUserID
			if partnerID == user.ID {
				partnerID = session.UserID
			}
			response["partner_online"] = tracker.IsOnline(c.Request.Context(), partnerID)
		}

		c.JSON(http.StatusOK, response)
	}
}

func deleteSessionHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		if err := chatService.DeleteSession(sessionID, user.ID); err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Chat session deleted successfully"})
	}
}

func sendMessageHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		var request struct {
			Content         string     `json:"content" binding:"required"`
			MessageType     string     `json:"message_type"`
			ParentMessageID *uuid.UUID `json:"parent_message_id"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		result, svcErr := chatService.SendMessage(c.Request.Context(), sessionID, user.ID, services.SendMessageInput{
			Content:         request.Content,
			MessageType:     request.MessageType,
			ParentMessageID: request.ParentMessageID,
		})
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getHistoryHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		messages, svcErr := chatService.GetHistory(sessionID, user.ID, limit, offset)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

func renameSessionHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		var request struct {
			Title string `json:"title" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		session, svcErr := chatService.RenameSession(sessionID, user.ID, request.Title)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func summarizeSessionHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid session id"))
			return
		}

		summary, svcErr := chatService.SummarizeSession(c.Request.Context(), sessionID, user.ID)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

func statsHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}

		stats, err := chatService.Stats(user.ID)
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
