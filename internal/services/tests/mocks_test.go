package services_test

import (
	"context"
	"time"

	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/provider"
	"couple_compass_go_backend/internal/rag"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) CreateSession(session *models.ChatSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionStore) GetSessionForUser(sessionID, userID uuid.UUID) (*models.ChatSession, error) {
	args := m.Called(sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockSessionStore) GetOwnedSession(sessionID, userID uuid.UUID) (*models.ChatSession, error) {
	args := m.Called(sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockSessionStore) ListSessionsForUser(userID uuid.UUID, limit, offset int) ([]models.ChatSession, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatSession), args.Error(1)
}

func (m *MockSessionStore) SessionParticipants(sessionID, callerID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(sessionID, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockSessionStore) AppendMessage(message *models.ChatMessage) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockSessionStore) GetMessage(messageID uuid.UUID) (*models.ChatMessage, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockSessionStore) ListMessages(sessionID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	args := m.Called(sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockSessionStore) RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	args := m.Called(sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockSessionStore) TouchActivity(sessionID uuid.UUID, at time.Time) error {
	args := m.Called(sessionID, at)
	return args.Error(0)
}

func (m *MockSessionStore) UpdateSession(sessionID uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(sessionID, updates)
	return args.Error(0)
}

func (m *MockSessionStore) SetPartner(sessionID uuid.UUID, partnerID *uuid.UUID, sessionType string) error {
	args := m.Called(sessionID, partnerID, sessionType)
	return args.Error(0)
}

func (m *MockSessionStore) DeleteSession(sessionID uuid.UUID) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func (m *MockSessionStore) CountSessionsForUser(userID uuid.UUID) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionStore) CountMessagesForUser(userID uuid.UUID, role string) (int64, error) {
	args := m.Called(userID, role)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvitationStore struct {
	mock.Mock
}

func (m *MockInvitationStore) CreateInvitation(invitation *models.ChatInvitation) error {
	args := m.Called(invitation)
	return args.Error(0)
}

func (m *MockInvitationStore) GetInvitation(invitationID uuid.UUID) (*models.ChatInvitation, error) {
	args := m.Called(invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatInvitation), args.Error(1)
}

func (m *MockInvitationStore) PendingInvitation(sessionID, inviterID, inviteeID uuid.UUID) (*models.ChatInvitation, error) {
	args := m.Called(sessionID, inviterID, inviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatInvitation), args.Error(1)
}

func (m *MockInvitationStore) ListPendingForInvitee(inviteeID uuid.UUID) ([]models.ChatInvitation, error) {
	args := m.Called(inviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatInvitation), args.Error(1)
}

func (m *MockInvitationStore) UpdateInvitationStatus(invitationID uuid.UUID, status string, respondedAt *time.Time) error {
	args := m.Called(invitationID, status, respondedAt)
	return args.Error(0)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByID(userID uuid.UUID) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) EmbeddingDim() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockProvider) Generate(ctx context.Context, req provider.GenerationRequest) (*provider.GenerationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.GenerationResult), args.Error(1)
}

func (m *MockProvider) Moderate(ctx context.Context, text string) (*provider.ModerationResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ModerationResult), args.Error(1)
}

func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockContextStore struct {
	mock.Mock
}

func (m *MockContextStore) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockContextStore) Store(ctx context.Context, sessionID uuid.UUID, content, contentType string, sourceMessageID *uuid.UUID, metadata map[string]interface{}) bool {
	args := m.Called(ctx, sessionID, content, contentType, sourceMessageID, metadata)
	return args.Bool(0)
}

func (m *MockContextStore) Search(ctx context.Context, query string, sessionID uuid.UUID, limit int, minScore float64) []rag.SearchResult {
	args := m.Called(ctx, query, sessionID, limit, minScore)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]rag.SearchResult)
}

func (m *MockContextStore) DeleteSession(sessionID uuid.UUID) {
	m.Called(sessionID)
}

func (m *MockContextStore) Stats() rag.Stats {
	args := m.Called()
	return args.Get(0).(rag.Stats)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) SendToUser(userID uuid.UUID, event interface{}) {
	m.Called(userID, event)
}

func (m *MockEventPublisher) SendToUsers(userIDs []uuid.UUID, excludeUserID *uuid.UUID, event interface{}) {
	m.Called(userIDs, excludeUserID, event)
}
