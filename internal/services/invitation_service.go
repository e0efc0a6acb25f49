package services

import (
	"fmt"
	"time"

	apperrors "couple_compass_go_backend/internal/errors"
	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/wsocket"

	"github.com/google/uuid"
)

// invitationTTL is fixed at creation; expiry is applied lazily at the next
// accept/decline attempt rather than by a background sweep.
const invitationTTL = 24 * time.Hour

// InvitationService runs the partner-session join flow. The invitee is
// always the inviter's linked partner; arbitrary users cannot be invited.
type InvitationService struct {
	invitations InvitationStoreDB
	sessions    SessionStoreDB
	users       UserStoreDB
	events      EventPublisher
}

func NewInvitationService(invitations InvitationStoreDB, sessions SessionStoreDB, users UserStoreDB, events EventPublisher) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		sessions:    sessions,
		users:       users,
		events:      events,
	}
}

// InvitePartner invites the caller's linked partner into a session the
// caller owns. At most one pending invitation may exist per (session,
// inviter, invitee); a stale pending one is flipped to expired first.
func (s *InvitationService) InvitePartner(sessionID, callerID uuid.UUID, message string) (*models.ChatInvitation, error) {
	session, err := s.sessions.GetOwnedSession(sessionID, callerID)
	if err != nil {
		return nil, apperrors.New404Error("Chat session not found")
	}
	if session.PartnerUserID != nil {
		return nil, apperrors.New400Error("Session already has a partner")
	}

	caller, err := s.users.GetUserByID(callerID)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	if caller.PartnerID == nil {
		return nil, apperrors.New400Error("You have no linked partner to invite")
	}
	inviteeID := *caller.PartnerID

	pending, err := s.invitations.PendingInvitation(sessionID, callerID, inviteeID)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	if pending != nil {
		if time.Now().UTC().Before(pending.ExpiresAt) {
			return nil, apperrors.New400Error("An invitation for this session is already pending")
		}
		if err := s.invitations.UpdateInvitationStatus(pending.ID, models.InvitationStatusExpired, nil); err != nil {
			return nil, apperrors.LogAndReturn500(err)
		}
	}

	invitation := &models.ChatInvitation{
		SessionID: sessionID,
		InviterID: callerID,
		InviteeID: inviteeID,
		Status:    models.InvitationStatusPending,
		Message:   message,
		ExpiresAt: time.Now().UTC().Add(invitationTTL),
	}
	if err := s.invitations.CreateInvitation(invitation); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}

	s.events.SendToUser(inviteeID, invitationEvent(invitation))
	return invitation, nil
}

// ListInvitations returns the caller's pending, unexpired invitations.
func (s *InvitationService) ListInvitations(inviteeID uuid.UUID) ([]models.ChatInvitation, error) {
	invitations, err := s.invitations.ListPendingForInvitee(inviteeID)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	return invitations, nil
}

// AcceptInvitation joins the invitee to the session: the invitation flips
// to accepted, the session gains the partner and becomes joint, and both
// sides are notified. Accepting after the deadline flips the invitation to
// expired and rejects the accept.
func (s *InvitationService) AcceptInvitation(invitationID, callerID uuid.UUID) (*models.ChatInvitation, error) {
	invitation, err := s.loadPendingInvitation(invitationID, callerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if expired, expErr := s.expireIfStale(invitation, now); expired || expErr != nil {
		if expErr != nil {
			return nil, expErr
		}
		return nil, apperrors.New400Error("Invitation has expired")
	}

	if err := s.invitations.UpdateInvitationStatus(invitation.ID, models.InvitationStatusAccepted, &now); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	partnerID := callerID
	if err := s.sessions.SetPartner(invitation.SessionID, &partnerID, models.SessionTypeJoint); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	invitation.Status = models.InvitationStatusAccepted
	invitation.RespondedAt = &now

	partnerName := ""
	if partner, err := s.users.GetUserByID(callerID); err == nil {
		partnerName = partner.Name
	}

	s.events.SendToUser(invitation.InviterID, invitationEvent(invitation))
	s.events.SendToUsers([]uuid.UUID{invitation.InviterID, callerID}, nil, wsocket.PartnerEvent{
		Type:        wsocket.EventTypePartnerJoined,
		SessionID:   invitation.SessionID,
		PartnerID:   callerID,
		PartnerName: partnerName,
		Message:     fmt.Sprintf("%s joined the session", partnerName),
	})

	return invitation, nil
}

// DeclineInvitation rejects a pending invitation. Only the inviter is
// notified; a declined invitation changes nothing on the session.
func (s *InvitationService) DeclineInvitation(invitationID, callerID uuid.UUID) (*models.ChatInvitation, error) {
	invitation, err := s.loadPendingInvitation(invitationID, callerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if expired, expErr := s.expireIfStale(invitation, now); expired || expErr != nil {
		if expErr != nil {
			return nil, expErr
		}
		return nil, apperrors.New400Error("Invitation has expired")
	}

	if err := s.invitations.UpdateInvitationStatus(invitation.ID, models.InvitationStatusDeclined, &now); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	invitation.Status = models.InvitationStatusDeclined
	invitation.RespondedAt = &now

	s.events.SendToUser(invitation.InviterID, invitationEvent(invitation))
	return invitation, nil
}

// LeaveSession lets the joined partner leave a joint session. The session
// reverts to solo mediation and both sides are notified. The owner cannot
// leave their own session; they delete it instead.
func (s *InvitationService) LeaveSession(sessionID, callerID uuid.UUID) error {
	session, err := s.sessions.GetSessionForUser(sessionID, callerID)
	if err != nil {
		return apperrors.New404Error("Chat session not found")
	}
	if session.PartnerUserID == nil || *session.PartnerUserID != callerID {
		return apperrors.New400Error("Only the joined partner can leave a session")
	}
	if err := s.sessions.SetPartner(sessionID, nil, models.SessionTypeSoloMediation); err != nil {
		return apperrors.LogAndReturn500(err)
	}

	partnerName := ""
	if partner, err := s.users.GetUserByID(callerID); err == nil {
		partnerName = partner.Name
	}
	s.events.SendToUsers([]uuid.UUID{session.UserID, callerID}, nil, wsocket.PartnerEvent{
		Type:        wsocket.EventTypePartnerLeft,
		SessionID:   sessionID,
		PartnerID:   callerID,
		PartnerName: partnerName,
		Message:     fmt.Sprintf("%s left the session", partnerName),
	})
	return nil
}

// loadPendingInvitation fetches a pending invitation addressed to the
// caller. A wrong caller gets not-found, never a hint that the invitation
// exists.
func (s *InvitationService) loadPendingInvitation(invitationID, callerID uuid.UUID) (*models.ChatInvitation, error) {
	invitation, err := s.invitations.GetInvitation(invitationID)
	if err != nil {
		return nil, apperrors.New404Error("Invitation not found")
	}
	if invitation.InviteeID != callerID {
		return nil, apperrors.New404Error("Invitation not found")
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, apperrors.New400Error("Invitation has already been responded to")
	}
	return invitation, nil
}

// expireIfStale flips a pending invitation past its deadline to expired.
func (s *InvitationService) expireIfStale(invitation *models.ChatInvitation, now time.Time) (bool, error) {
	if !now.After(invitation.ExpiresAt) {
		return false, nil
	}
	if err := s.invitations.UpdateInvitationStatus(invitation.ID, models.InvitationStatusExpired, &now); err != nil {
		return true, apperrors.LogAndReturn500(err)
	}
	invitation.Status = models.InvitationStatusExpired
	return true, nil
}

func invitationEvent(invitation *models.ChatInvitation) wsocket.InvitationEvent {
	return wsocket.InvitationEvent{
		Type:         wsocket.EventTypeInvitation,
		InvitationID: invitation.ID,
		SessionID:    invitation.SessionID,
		InviterID:    invitation.InviterID,
		InviteeID:    invitation.InviteeID,
		Status:       invitation.Status,
		Message:      invitation.Message,
	}
}
