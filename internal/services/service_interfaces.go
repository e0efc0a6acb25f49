package services

import (
	"context"
	"time"

	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/rag"

	"github.com/google/uuid"
)

// SessionStoreDB is the persistence contract for sessions and their
// messages. Reads are scoped by caller id so users only ever see sessions
// they own or participate in.
type SessionStoreDB interface {
	CreateSession(session *models.ChatSession) error
	GetSessionForUser(sessionID, userID uuid.UUID) (*models.ChatSession, error)
	GetOwnedSession(sessionID, userID uuid.UUID) (*models.ChatSession, error)
	ListSessionsForUser(userID uuid.UUID, limit, offset int) ([]models.ChatSession, error)
	SessionParticipants(sessionID, callerID uuid.UUID) ([]uuid.UUID, error)
	AppendMessage(message *models.ChatMessage) error
	GetMessage(messageID uuid.UUID) (*models.ChatMessage, error)
	ListMessages(sessionID uuid.UUID, limit, offset int) ([]models.ChatMessage, error)
	RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
	TouchActivity(sessionID uuid.UUID, at time.Time) error
	UpdateSession(sessionID uuid.UUID, updates map[string]interface{}) error
	SetPartner(sessionID uuid.UUID, partnerID *uuid.UUID, sessionType string) error
	DeleteSession(sessionID uuid.UUID) error
	CountSessionsForUser(userID uuid.UUID) (int64, error)
	CountMessagesForUser(userID uuid.UUID, role string) (int64, error)
}

// InvitationStoreDB is the persistence contract for partner invitations.
type InvitationStoreDB interface {
	CreateInvitation(invitation *models.ChatInvitation) error
	GetInvitation(invitationID uuid.UUID) (*models.ChatInvitation, error)
	PendingInvitation(sessionID, inviterID, inviteeID uuid.UUID) (*models.ChatInvitation, error)
	ListPendingForInvitee(inviteeID uuid.UUID) ([]models.ChatInvitation, error)
	UpdateInvitationStatus(invitationID uuid.UUID, status string, respondedAt *time.Time) error
}

// UserStoreDB is the slice of user persistence the chat core reads.
type UserStoreDB interface {
	GetUserByID(userID uuid.UUID) (*models.User, error)
}

// ContextStore is the optional retrieval-augmentation capability. Every
// operation degrades to an empty result when the store is unavailable.
type ContextStore interface {
	Available() bool
	Store(ctx context.Context, sessionID uuid.UUID, content, contentType string, sourceMessageID *uuid.UUID, metadata map[string]interface{}) bool
	Search(ctx context.Context, query string, sessionID uuid.UUID, limit int, minScore float64) []rag.SearchResult
	DeleteSession(sessionID uuid.UUID)
	Stats() rag.Stats
}

// EventPublisher pushes real-time events to live client connections.
type EventPublisher interface {
	SendToUser(userID uuid.UUID, event interface{})
	SendToUsers(userIDs []uuid.UUID, excludeUserID *uuid.UUID, event interface{})
}
