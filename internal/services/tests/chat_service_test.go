package services_test

import (
	"context"
	"testing"
	"time"

	apperrors "couple_compass_go_backend/internal/errors"
	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/provider"
	"couple_compass_go_backend/internal/rag"
	"couple_compass_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type chatFixture struct {
	sessions     *MockSessionStore
	contextStore *MockContextStore
	ai           *MockProvider
	events       *MockEventPublisher
	service      *services.ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		sessions:     new(MockSessionStore),
		contextStore: new(MockContextStore),
		ai:           new(MockProvider),
		events:       new(MockEventPublisher),
	}
	f.service = services.NewChatService(f.sessions, f.contextStore, f.ai, f.events)
	return f
}

func soloSession(ownerID uuid.UUID) *models.ChatSession {
	return &models.ChatSession{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       "New Conversation",
		SessionType: models.SessionTypeSoloMediation,
		Status:      models.SessionStatusActive,
	}
}

func TestSendMessageExchange(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.ai.On("Moderate", mock.Anything, "We keep arguing about money").
		Return(&provider.ModerationResult{Flagged: false}, nil)

	var appended []*models.ChatMessage
	f.sessions.On("AppendMessage", mock.Anything).Run(func(args mock.Arguments) {
		msg := args.Get(0).(*models.ChatMessage)
		msg.ID = uuid.New()
		appended = append(appended, msg)
	}).Return(nil)

	f.sessions.On("RecentMessages", session.ID, 10).Return([]models.ChatMessage{}, nil)
	f.contextStore.On("Search", mock.Anything, "We keep arguing about money", session.ID, 5, rag.DefaultMinScore).
		Return([]rag.SearchResult{})
	f.contextStore.On("Store", mock.Anything, session.ID, mock.Anything, models.ChunkTypeMessage, mock.Anything, mock.Anything).
		Return(true)

	f.ai.On("Generate", mock.Anything, mock.Anything).
		Return(&provider.GenerationResult{
			Text:       "It sounds like finances have become a source of tension.",
			TokensUsed: 245,
			Model:      "gpt-4-turbo-preview",
		}, nil).Once()
	f.ai.On("Generate", mock.Anything, mock.Anything).
		Return(&provider.GenerationResult{
			Text:  "1. Schedule a budget conversation\n2. Use I-statements when discussing spending",
			Model: "gpt-4-turbo-preview",
		}, nil).Once()

	f.sessions.On("TouchActivity", session.ID, mock.Anything).Return(nil)
	f.events.On("SendToUsers", mock.Anything, mock.Anything, mock.Anything).Return()

	result, err := f.service.SendMessage(context.Background(), session.ID, ownerID, services.SendMessageInput{
		Content: "We keep arguing about money",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "We keep arguing about money", result.UserMessage.Content)
	assert.Equal(t, models.RoleAI, result.AIMessage.Role)
	assert.Nil(t, result.AIMessage.UserID)
	assert.Equal(t, 245, result.AIMessage.TokensUsed)
	assert.Equal(t, 0.85, result.ConfidenceScore)
	assert.Equal(t, []string{
		"Schedule a budget conversation",
		"Use I-statements when discussing spending",
	}, result.SuggestedActions)

	// User message is persisted before the AI reply, and the reply points at it.
	assert.Len(t, appended, 2)
	assert.Equal(t, result.UserMessage, appended[0])
	assert.Equal(t, result.AIMessage, appended[1])
	assert.NotNil(t, result.AIMessage.ParentMessageID)
	assert.Equal(t, result.UserMessage.ID, *result.AIMessage.ParentMessageID)

	f.contextStore.AssertNumberOfCalls(t, "Store", 2)
}

func TestSendMessageFlaggedContentIsNotPersisted(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.ai.On("Moderate", mock.Anything, mock.Anything).
		Return(&provider.ModerationResult{Flagged: true}, nil)

	result, err := f.service.SendMessage(context.Background(), session.ID, ownerID, services.SendMessageInput{
		Content: "something hostile",
	})

	assert.Nil(t, result)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypePolicyViolation, customErr.Type)
	f.sessions.AssertNotCalled(t, "AppendMessage", mock.Anything)
}

func TestSendMessageModerationFailsOpen(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.ai.On("Moderate", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.sessions.On("AppendMessage", mock.Anything).Return(nil)
	f.sessions.On("RecentMessages", session.ID, 10).Return([]models.ChatMessage{}, nil)
	f.contextStore.On("Search", mock.Anything, mock.Anything, session.ID, 5, rag.DefaultMinScore).
		Return([]rag.SearchResult{})
	f.contextStore.On("Store", mock.Anything, session.ID, mock.Anything, models.ChunkTypeMessage, mock.Anything, mock.Anything).
		Return(true)
	f.ai.On("Generate", mock.Anything, mock.Anything).
		Return(&provider.GenerationResult{Text: "reply", TokensUsed: 10, Model: "gpt-4-turbo-preview"}, nil)
	f.sessions.On("TouchActivity", session.ID, mock.Anything).Return(nil)
	f.events.On("SendToUsers", mock.Anything, mock.Anything, mock.Anything).Return()

	result, err := f.service.SendMessage(context.Background(), session.ID, ownerID, services.SendMessageInput{
		Content: "hello",
	})

	assert.NoError(t, err)
	assert.Equal(t, "reply", result.AIMessage.Content)
}

func TestSendMessageGenerationFailureFallsBack(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.ai.On("Moderate", mock.Anything, mock.Anything).
		Return(&provider.ModerationResult{Flagged: false}, nil)
	f.sessions.On("AppendMessage", mock.Anything).Return(nil)
	f.sessions.On("RecentMessages", session.ID, 10).Return([]models.ChatMessage{}, nil)
	f.contextStore.On("Search", mock.Anything, mock.Anything, session.ID, 5, rag.DefaultMinScore).
		Return([]rag.SearchResult{})
	f.contextStore.On("Store", mock.Anything, session.ID, mock.Anything, models.ChunkTypeMessage, mock.Anything, mock.Anything).
		Return(true)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.sessions.On("TouchActivity", session.ID, mock.Anything).Return(nil)
	f.events.On("SendToUsers", mock.Anything, mock.Anything, mock.Anything).Return()

	result, err := f.service.SendMessage(context.Background(), session.ID, ownerID, services.SendMessageInput{
		Content: "hello",
	})

	assert.NoError(t, err)
	assert.Contains(t, result.AIMessage.Content, "I apologize")
	assert.Equal(t, 0, result.AIMessage.TokensUsed)
	assert.Equal(t, 0.0, result.ConfidenceScore)
	assert.Equal(t, []string{
		"Continue the conversation",
		"Reflect on the advice given",
		"Consider discussing this with your partner",
	}, result.SuggestedActions)
}

func TestSendMessageEmptyContent(t *testing.T) {
	f := newChatFixture()

	result, err := f.service.SendMessage(context.Background(), uuid.New(), uuid.New(), services.SendMessageInput{
		Content: "   ",
	})

	assert.Nil(t, result)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeBadRequest, customErr.Type)
}

func TestSendMessageInaccessibleSessionLooksMissing(t *testing.T) {
	f := newChatFixture()
	sessionID := uuid.New()
	strangerID := uuid.New()

	f.sessions.On("GetSessionForUser", sessionID, strangerID).Return(nil, assert.AnError)

	result, err := f.service.SendMessage(context.Background(), sessionID, strangerID, services.SendMessageInput{
		Content: "hello",
	})

	assert.Nil(t, result)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeNotFound, customErr.Type)
}

func TestSendMessageParentFromOtherSessionRejected(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)
	parentID := uuid.New()

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.ai.On("Moderate", mock.Anything, mock.Anything).
		Return(&provider.ModerationResult{Flagged: false}, nil)
	f.sessions.On("GetMessage", parentID).Return(&models.ChatMessage{
		ID:        parentID,
		SessionID: uuid.New(),
	}, nil)

	result, err := f.service.SendMessage(context.Background(), session.ID, ownerID, services.SendMessageInput{
		Content:         "hello",
		ParentMessageID: &parentID,
	})

	assert.Nil(t, result)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeBadRequest, customErr.Type)
	f.sessions.AssertNotCalled(t, "AppendMessage", mock.Anything)
}

func TestCreateSessionDefaults(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()

	f.sessions.On("CreateSession", mock.Anything).Return(nil)

	session, err := f.service.CreateSession(ownerID, services.CreateSessionInput{})

	assert.NoError(t, err)
	assert.Equal(t, "New Conversation", session.Title)
	assert.Equal(t, models.SessionTypeSoloMediation, session.SessionType)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Nil(t, session.PartnerUserID)
}

func TestCreateSessionInvalidType(t *testing.T) {
	f := newChatFixture()

	session, err := f.service.CreateSession(uuid.New(), services.CreateSessionInput{
		SessionType: "group_therapy",
	})

	assert.Nil(t, session)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeBadRequest, customErr.Type)
}

func TestRenameSessionEmptyTitle(t *testing.T) {
	f := newChatFixture()

	session, err := f.service.RenameSession(uuid.New(), uuid.New(), "  ")

	assert.Nil(t, session)
	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeBadRequest, customErr.Type)
	f.sessions.AssertNotCalled(t, "UpdateSession", mock.Anything, mock.Anything)
}

func TestDeleteSessionCascades(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetOwnedSession", session.ID, ownerID).Return(session, nil)
	f.contextStore.On("DeleteSession", session.ID).Return()
	f.sessions.On("DeleteSession", session.ID).Return(nil)

	err := f.service.DeleteSession(session.ID, ownerID)

	assert.NoError(t, err)
	f.contextStore.AssertCalled(t, "DeleteSession", session.ID)
	f.sessions.AssertCalled(t, "DeleteSession", session.ID)
}

func TestDeleteSessionRequiresOwner(t *testing.T) {
	f := newChatFixture()
	sessionID := uuid.New()
	partnerID := uuid.New()

	f.sessions.On("GetOwnedSession", sessionID, partnerID).Return(nil, assert.AnError)

	err := f.service.DeleteSession(sessionID, partnerID)

	var customErr *apperrors.CustomError
	assert.ErrorAs(t, err, &customErr)
	assert.Equal(t, apperrors.ErrorTypeNotFound, customErr.Type)
	f.sessions.AssertNotCalled(t, "DeleteSession", sessionID)
}

func TestSummarizeSessionFallback(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.sessions.On("RecentMessages", session.ID, 50).Return([]models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
	}, nil)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.sessions.On("UpdateSession", session.ID, mock.Anything).Return(nil)
	f.contextStore.On("Store", mock.Anything, session.ID, mock.Anything, models.ChunkTypeSummary, mock.Anything, mock.Anything).
		Return(true)

	summary, err := f.service.SummarizeSession(context.Background(), session.ID, ownerID)

	assert.NoError(t, err)
	assert.Equal(t, "Conversation summary unavailable", summary)
	f.sessions.AssertCalled(t, "UpdateSession", session.ID, mock.Anything)
}

func TestStats(t *testing.T) {
	f := newChatFixture()
	userID := uuid.New()

	f.sessions.On("CountSessionsForUser", userID).Return(int64(3), nil)
	f.sessions.On("CountMessagesForUser", userID, models.RoleUser).Return(int64(12), nil)
	f.sessions.On("CountMessagesForUser", userID, models.RoleAI).Return(int64(11), nil)
	f.contextStore.On("Stats").Return(rag.Stats{Available: true, TotalChunks: 24, Dimension: 1536})

	stats, err := f.service.Stats(userID)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSessions)
	assert.Equal(t, int64(12), stats.TotalMessages)
	assert.Equal(t, int64(11), stats.TotalAIResponses)
	assert.True(t, stats.ContextStore.Available)
}

func TestGetHistoryClampsPaging(t *testing.T) {
	f := newChatFixture()
	ownerID := uuid.New()
	session := soloSession(ownerID)
	now := time.Now()

	f.sessions.On("GetSessionForUser", session.ID, ownerID).Return(session, nil)
	f.sessions.On("ListMessages", session.ID, 50, 0).Return([]models.ChatMessage{
		{Role: models.RoleUser, Content: "first", CreatedAt: now},
		{Role: models.RoleAI, Content: "second", CreatedAt: now},
	}, nil)

	messages, err := f.service.GetHistory(session.ID, ownerID, -5, -1)

	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
}
