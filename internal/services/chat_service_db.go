package services

import (
	"time"

	"couple_compass_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSessionStore implements SessionStoreDB on GORM/Postgres.
type DefaultSessionStore struct {
	db *gorm.DB
}

// NewSessionStoreDB creates a new session store backed by the given database
func NewSessionStoreDB(db *gorm.DB) SessionStoreDB {
	return &DefaultSessionStore{db: db}
}

func (s *DefaultSessionStore) CreateSession(session *models.ChatSession) error {
	if session.LastActivity.IsZero() {
		session.LastActivity = time.Now().UTC()
	}
	return s.db.Create(session).Error
}

// GetSessionForUser fetches a session the user owns or participates in.
// Sessions the user cannot access look identical to sessions that do not
// exist.
func (s *DefaultSessionStore) GetSessionForUser(sessionID, userID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	result := s.db.Where("id = ? AND (user_id = ? OR partner_user_id = ?)", sessionID, userID, userID).First(&session)
	if result.Error != nil {
		return nil, result.Error
	}
	return &session, nil
}

// GetOwnedSession fetches a session only if the user is its owner.
func (s *DefaultSessionStore) GetOwnedSession(sessionID, userID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	result := s.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session)
	if result.Error != nil {
		return nil, result.Error
	}
	return &session, nil
}

func (s *DefaultSessionStore) ListSessionsForUser(userID uuid.UUID, limit, offset int) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	result := s.db.Where("user_id = ? OR partner_user_id = ?", userID, userID).
		Order("last_activity desc").
		Limit(limit).
		Offset(offset).
		Find(&sessions)
	if result.Error != nil {
		return nil, result.Error
	}
	return sessions, nil
}

func (s *DefaultSessionStore) SessionParticipants(sessionID, callerID uuid.UUID) ([]uuid.UUID, error) {
	session, err := s.GetSessionForUser(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	participants := []uuid.UUID{session.UserID}
	if session.PartnerUserID != nil {
		participants = append(participants, *session.PartnerUserID)
	}
	return participants, nil
}

func (s *DefaultSessionStore) AppendMessage(message *models.ChatMessage) error {
	return s.db.Create(message).Error
}

func (s *DefaultSessionStore) GetMessage(messageID uuid.UUID) (*models.ChatMessage, error) {
	var message models.ChatMessage
	result := s.db.Where("id = ?", messageID).First(&message)
	if result.Error != nil {
		return nil, result.Error
	}
	return &message, nil
}

// ListMessages returns the session's messages in append order, excluding
// soft-deleted rows.
func (s *DefaultSessionStore) ListMessages(sessionID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	result := s.db.Where("session_id = ? AND is_deleted = ?", sessionID, false).
		Order("seq asc").
		Limit(limit).
		Offset(offset).
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}
	return messages, nil
}

// RecentMessages returns the last limit messages in chronological order.
// The page is fetched newest-first so Limit picks the tail, then flipped
// back so callers always see append order.
func (s *DefaultSessionStore) RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	result := s.db.Where("session_id = ? AND is_deleted = ?", sessionID, false).
		Order("seq desc").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}
	return oldestFirst(messages), nil
}

// oldestFirst reverses a newest-first page in place so it reads in append
// order.
func oldestFirst(messages []models.ChatMessage) []models.ChatMessage {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

func (s *DefaultSessionStore) TouchActivity(sessionID uuid.UUID, at time.Time) error {
	return s.db.Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Update("last_activity", at).Error
}

func (s *DefaultSessionStore) UpdateSession(sessionID uuid.UUID, updates map[string]interface{}) error {
	return s.db.Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
}

func (s *DefaultSessionStore) SetPartner(sessionID uuid.UUID, partnerID *uuid.UUID, sessionType string) error {
	return s.db.Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"partner_user_id": partnerID,
			"session_type":    sessionType,
		}).Error
}

// DeleteSession removes the session and everything hanging off it in one
// transaction: messages, context chunks and invitations.
func (s *DefaultSessionStore) DeleteSession(sessionID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.ContextChunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.ChatInvitation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&models.ChatSession{}).Error
	})
}

func (s *DefaultSessionStore) CountSessionsForUser(userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.ChatSession{}).
		Where("user_id = ? OR partner_user_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}

func (s *DefaultSessionStore) CountMessagesForUser(userID uuid.UUID, role string) (int64, error) {
	var count int64
	err := s.db.Model(&models.ChatMessage{}).
		Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
		Where("(chat_sessions.user_id = ? OR chat_sessions.partner_user_id = ?) AND chat_messages.role = ?", userID, userID, role).
		Count(&count).Error
	return count, err
}
