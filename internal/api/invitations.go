package api

import (
	"net/http"

	"couple_compass_go_backend/internal/errors"
	"couple_compass_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func invitePartnerHandler(invitationService *services.InvitationService) gin.HandlerFunc {
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
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		invitation, svcErr := invitationService.InvitePartner(sessionID, user.ID, request.Message)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusCreated, invitation)
	}
}

func listInvitationsHandler(invitationService *services.InvitationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}

		invitations, err := invitationService.ListInvitations(user.ID)
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"invitations": invitations})
	}
}

func acceptInvitationHandler(invitationService *services.InvitationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		invitationID, err := uuid.Parse(c.Param("invitation_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid invitation id"))
			return
		}

		invitation, svcErr := invitationService.AcceptInvitation(invitationID, user.ID)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, invitation)
	}
}

func declineInvitationHandler(invitationService *services.InvitationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			errors.HandleError(c, errors.New401Error())
			return
		}
		invitationID, err := uuid.Parse(c.Param("invitation_id"))
		if err != nil {
			errors.HandleError(c, errors.New400Error("Invalid invitation id"))
			return
		}

		invitation, svcErr := invitationService.DeclineInvitation(invitationID, user.ID)
		if svcErr != nil {
			errors.HandleError(c, svcErr)
			return
		}

		c.JSON(http.StatusOK, invitation)
	}
}

func leaveSessionHandler(invitationService *services.InvitationService) gin.HandlerFunc {
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

		if err := invitationService.LeaveSession(sessionID, user.ID); err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Left the session successfully"})
	}
}
