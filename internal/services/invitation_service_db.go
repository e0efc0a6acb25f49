package services

import (
	"errors"
	"time"

	"couple_compass_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultInvitationStore implements InvitationStoreDB on GORM/Postgres.
type DefaultInvitationStore struct {
	db *gorm.DB
}

// NewInvitationStoreDB creates a new invitation store backed by the given database
func NewInvitationStoreDB(db *gorm.DB) InvitationStoreDB {
	return &DefaultInvitationStore{db: db}
}

func (s *DefaultInvitationStore) CreateInvitation(invitation *models.ChatInvitation) error {
	return s.db.Create(invitation).Error
}

func (s *DefaultInvitationStore) GetInvitation(invitationID uuid.UUID) (*models.ChatInvitation, error) {
	var invitation models.ChatInvitation
	result := s.db.Where("id = ?", invitationID).First(&invitation)
	if result.Error != nil {
		return nil, result.Error
	}
	return &invitation, nil
}

// PendingInvitation returns the pending invitation for the triple, or nil
// when none exists.
func (s *DefaultInvitationStore) PendingInvitation(sessionID, inviterID, inviteeID uuid.UUID) (*models.ChatInvitation, error) {
	var invitation models.ChatInvitation
	result := s.db.Where(
		"session_id = ? AND inviter_id = ? AND invitee_id = ? AND status = ?",
		sessionID, inviterID, inviteeID, models.InvitationStatusPending,
	).First(&invitation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &invitation, nil
}

// ListPendingForInvitee returns the invitee's pending, unexpired
// invitations, newest first. Stale rows are filtered out here but not
// flipped; status only changes on an accept/decline attempt.
func (s *DefaultInvitationStore) ListPendingForInvitee(inviteeID uuid.UUID) ([]models.ChatInvitation, error) {
	var invitations []models.ChatInvitation
	result := s.db.Where(
		"invitee_id = ? AND status = ? AND expires_at > ?",
		inviteeID, models.InvitationStatusPending, time.Now().UTC(),
	).Order("created_at desc").Find(&invitations)
	if result.Error != nil {
		return nil, result.Error
	}
	return invitations, nil
}

func (s *DefaultInvitationStore) UpdateInvitationStatus(invitationID uuid.UUID, status string, respondedAt *time.Time) error {
	return s.db.Model(&models.ChatInvitation{}).
		Where("id = ?", invitationID).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": respondedAt,
		}).Error
}
