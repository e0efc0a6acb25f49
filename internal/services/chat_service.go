package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "couple_compass_go_backend/internal/errors"
	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/provider"
	"couple_compass_go_backend/internal/rag"
	"couple_compass_go_backend/internal/wsocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const (
	historyLimit         = 10
	contextSearchLimit   = 5
	generationMaxTokens  = 1500
	generationTemp       = 0.7
	successConfidence    = 0.85
	suggestionsMaxTokens = 150
	suggestionsTemp      = 0.5
	maxSuggestedActions  = 3
	summaryHistoryLimit  = 50
	summaryMaxTokens     = 200
	summaryTemp          = 0.3
	maxParentDepth       = 100

	defaultHistoryPage = 50
	maxHistoryPage     = 200
	defaultSessionPage = 20
	maxSessionPage     = 100
)

const mediationSystemPrompt = `You are a professional relationship counselor and mediator specializing in helping couples resolve conflicts and improve communication. Your role is to:

1. Listen actively and empathetically to both partners
2. Help identify underlying issues and emotions
3. Provide constructive guidance without taking sides
4. Suggest healthy communication techniques
5. Offer actionable advice for resolving conflicts
6. Maintain a warm, supportive, and non-judgmental tone

Guidelines:
- Always acknowledge both partners' feelings and perspectives
- Ask clarifying questions to better understand the situation
- Suggest specific communication techniques (I-statements, active listening, etc.)
- Encourage empathy and understanding between partners
- Provide practical solutions and compromise strategies
- If discussing serious issues (abuse, addiction), recommend professional help
- Keep responses concise but thorough (2-4 paragraphs typically)
- Use a warm, professional tone that feels supportive

Remember: You're here to facilitate healthy communication and provide guidance, not to make decisions for the couple.`

const fallbackReply = "I apologize, but I'm having trouble processing your message right now. Please try again in a moment, or consider reaching out to a professional counselor if you need immediate support."

const summaryFallback = "Conversation summary unavailable"

var fallbackSuggestions = []string{
	"Continue the conversation",
	"Reflect on the advice given",
	"Consider discussing this with your partner",
}

// ExchangeResult is what one completed message exchange returns to the
// caller.
type ExchangeResult struct {
	UserMessage      *models.ChatMessage `json:"user_message"`
	AIMessage        *models.ChatMessage `json:"ai_response"`
	SuggestedActions []string            `json:"suggested_actions"`
	ConfidenceScore  float64             `json:"confidence_score"`
}

// UsageStats summarizes a user's chat activity.
type UsageStats struct {
	TotalSessions    int64     `json:"total_sessions"`
	TotalMessages    int64     `json:"total_messages"`
	TotalAIResponses int64     `json:"total_ai_responses"`
	ContextStore     rag.Stats `json:"context_store"`
}

type CreateSessionInput struct {
	Title       string
	SessionType string
	Topic       string
	Metadata    map[string]interface{}
}

type SendMessageInput struct {
	Content         string
	MessageType     string
	ParentMessageID *uuid.UUID
}

// ChatService orchestrates message exchanges: moderation, persistence,
// retrieval augmentation, generation and real-time fan-out.
type ChatService struct {
	sessions     SessionStoreDB
	contextStore ContextStore
	ai           provider.Provider
	events       EventPublisher
}

func NewChatService(sessions SessionStoreDB, contextStore ContextStore, ai provider.Provider, events EventPublisher) *ChatService {
	return &ChatService{
		sessions:     sessions,
		contextStore: contextStore,
		ai:           ai,
		events:       events,
	}
}

// CreateSession creates a solo session owned by the caller. A partner can
// only join later through an accepted invitation.
func (s *ChatService) CreateSession(userID uuid.UUID, input CreateSessionInput) (*models.ChatSession, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Conversation"
	}
	sessionType := input.SessionType
	if sessionType == "" {
		sessionType = models.SessionTypeSoloMediation
	}
	if sessionType != models.SessionTypeSoloMediation && sessionType != models.SessionTypeJoint {
		return nil, apperrors.New400Error("Invalid session type")
	}

	session := &models.ChatSession{
		UserID:       userID,
		Title:        title,
		SessionType:  sessionType,
		Status:       models.SessionStatusActive,
		Topic:        input.Topic,
		Metadata:     datatypes.JSONMap(input.Metadata),
		LastActivity: time.Now().UTC(),
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	return session, nil
}

// ListSessions returns the caller's sessions (owned or joined), most
// recently active first.
func (s *ChatService) ListSessions(userID uuid.UUID, limit, offset int) ([]models.ChatSession, error) {
	if limit <= 0 || limit > maxSessionPage {
		limit = defaultSessionPage
	}
	if offset < 0 {
		offset = 0
	}
	sessions, err := s.sessions.ListSessionsForUser(userID, limit, offset)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	return sessions, nil
}

// GetSessionWithMessages loads one session and its first page of messages.
func (s *ChatService) GetSessionWithMessages(sessionID, callerID uuid.UUID) (*models.ChatSession, []models.ChatMessage, error) {
	session, err := s.sessions.GetSessionForUser(sessionID, callerID)
	if err != nil {
		return nil, nil, apperrors.New404Error("Chat session not found")
	}
	messages, err := s.sessions.ListMessages(sessionID, defaultHistoryPage, 0)
	if err != nil {
		return nil, nil, apperrors.LogAndReturn500(err)
	}
	return session, messages, nil
}

// GetHistory returns a page of the session's messages in append order.
func (s *ChatService) GetHistory(sessionID, callerID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.sessions.GetSessionForUser(sessionID, callerID); err != nil {
		return nil, apperrors.New404Error("Chat session not found")
	}
	if limit <= 0 || limit > maxHistoryPage {
		limit = defaultHistoryPage
	}
	if offset < 0 {
		offset = 0
	}
	messages, err := s.sessions.ListMessages(sessionID, limit, offset)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	return messages, nil
}

// SendMessage runs the full exchange pipeline. The caller's message is the
// one write that must succeed; everything after it degrades rather than
// fails.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, callerID uuid.UUID, input SendMessageInput) (*ExchangeResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.New400Error("Message content cannot be empty")
	}

	session, err := s.sessions.GetSessionForUser(sessionID, callerID)
	if err != nil {
		return nil, apperrors.New404Error("Chat session not found")
	}

	// Moderation runs before anything is persisted. A moderation backend
	// failure fails open; a flagged result rejects the message outright.
	moderation, err := s.ai.Moderate(ctx, content)
	if err != nil {
		log.Warn().Err(err).Msg("moderation unavailable, continuing without it")
	} else if moderation.Flagged {
		log.Warn().Str("user_id", callerID.String()).Msg("message rejected by content moderation")
		return nil, apperrors.NewPolicyViolationError("Message content violates community guidelines")
	}

	if input.ParentMessageID != nil {
		if err := s.validateParent(sessionID, *input.ParentMessageID); err != nil {
			return nil, err
		}
	}

	role := models.RoleUser
	if session.PartnerUserID != nil && callerID == *session.PartnerUserID {
		role = models.RolePartner
	}
	messageType := input.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	senderID := callerID
	userMessage := &models.ChatMessage{
		SessionID:       sessionID,
		UserID:          &senderID,
		Role:            role,
		Content:         content,
		MessageType:     messageType,
		ParentMessageID: input.ParentMessageID,
	}
	if err := s.sessions.AppendMessage(userMessage); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}

	history, err := s.sessions.RecentMessages(sessionID, historyLimit)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load conversation history")
		history = nil
	}
	// The just-persisted message comes back in history; it is appended
	// separately below.
	if len(history) > 0 && history[len(history)-1].ID == userMessage.ID {
		history = history[:len(history)-1]
	}

	retrieved := s.contextStore.Search(ctx, content, sessionID, contextSearchLimit, rag.DefaultMinScore)

	generation, genErr := s.ai.Generate(ctx, provider.GenerationRequest{
		Messages:    buildGenerationMessages(session, history, retrieved, content),
		MaxTokens:   generationMaxTokens,
		Temperature: generationTemp,
	})

	confidence := successConfidence
	var aiMessage *models.ChatMessage
	if genErr != nil {
		log.Error().Err(genErr).Str("session_id", sessionID.String()).Msg("generation failed, substituting fallback reply")
		confidence = 0
		aiMessage = &models.ChatMessage{
			SessionID:       sessionID,
			Role:            models.RoleAI,
			Content:         fallbackReply,
			MessageType:     models.MessageTypeText,
			ParentMessageID: &userMessage.ID,
			TokensUsed:      0,
			Metadata: datatypes.JSONMap{
				"error":    genErr.Error(),
				"fallback": true,
			},
		}
	} else {
		aiMessage = &models.ChatMessage{
			SessionID:       sessionID,
			Role:            models.RoleAI,
			Content:         generation.Text,
			MessageType:     models.MessageTypeText,
			ParentMessageID: &userMessage.ID,
			TokensUsed:      generation.TokensUsed,
			Metadata: datatypes.JSONMap{
				"model":          generation.Model,
				"temperature":    generationTemp,
				"context_length": len(history) + len(retrieved) + 2,
			},
		}
	}

	if err := s.sessions.AppendMessage(aiMessage); err != nil {
		// The caller's message is already safe; deliver the reply anyway.
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to persist AI reply")
	}

	s.storeExchangeContext(ctx, sessionID, userMessage, aiMessage)

	if err := s.sessions.TouchActivity(sessionID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("failed to update session activity")
	}

	s.broadcastReply(session, callerID, aiMessage)

	return &ExchangeResult{
		UserMessage:      userMessage,
		AIMessage:        aiMessage,
		SuggestedActions: s.suggestedActions(ctx, content, aiMessage.Content),
		ConfidenceScore:  confidence,
	}, nil
}

// DeleteSession removes a session the caller owns together with its
// messages, invitations and context chunks.
func (s *ChatService) DeleteSession(sessionID, callerID uuid.UUID) error {
	if _, err := s.sessions.GetOwnedSession(sessionID, callerID); err != nil {
		return apperrors.New404Error("Chat session not found")
	}
	s.contextStore.DeleteSession(sessionID)
	if err := s.sessions.DeleteSession(sessionID); err != nil {
		return apperrors.LogAndReturn500(err)
	}
	return nil
}

// RenameSession updates a session title; only the owner may rename.
func (s *ChatService) RenameSession(sessionID, callerID uuid.UUID, title string) (*models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.New400Error("Title cannot be empty")
	}
	session, err := s.sessions.GetOwnedSession(sessionID, callerID)
	if err != nil {
		return nil, apperrors.New404Error("Chat session not found")
	}
	if err := s.sessions.UpdateSession(sessionID, map[string]interface{}{"title": title}); err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	session.Title = title
	return session, nil
}

// SummarizeSession generates a short summary of the conversation, stores it
// on the session metadata and feeds it back into the context store. A
// generation failure yields the fixed fallback text instead of an error.
func (s *ChatService) SummarizeSession(ctx context.Context, sessionID, callerID uuid.UUID) (string, error) {
	session, err := s.sessions.GetSessionForUser(sessionID, callerID)
	if err != nil {
		return "", apperrors.New404Error("Chat session not found")
	}

	history, err := s.sessions.RecentMessages(sessionID, summaryHistoryLimit)
	if err != nil {
		return "", apperrors.LogAndReturn500(err)
	}

	var convo strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&convo, "%s: %s\n", msg.Role, msg.Content)
	}

	prompt := fmt.Sprintf(`Summarize this relationship counseling conversation in 2-3 sentences, focusing on:
1. The main issues discussed
2. Key advice or insights provided
3. Any agreements or next steps mentioned

Conversation:
%s
Summary:`, convo.String())

	summary := summaryFallback
	result, genErr := s.ai.Generate(ctx, provider.GenerationRequest{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: prompt}},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemp,
	})
	if genErr != nil {
		log.Warn().Err(genErr).Str("session_id", sessionID.String()).Msg("failed to generate session summary")
	} else {
		summary = strings.TrimSpace(result.Text)
	}

	metadata := map[string]interface{}(session.Metadata)
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["summary"] = summary
	metadata["summary_generated_at"] = time.Now().UTC().Format(time.RFC3339)
	if err := s.sessions.UpdateSession(sessionID, map[string]interface{}{"metadata": datatypes.JSONMap(metadata)}); err != nil {
		log.Warn().Err(err).Msg("failed to store session summary")
	}

	// Summaries also feed later retrieval.
	s.contextStore.Store(ctx, sessionID, summary, models.ChunkTypeSummary, nil, nil)

	return summary, nil
}

// Stats reports the caller's aggregate chat activity.
func (s *ChatService) Stats(userID uuid.UUID) (*UsageStats, error) {
	sessions, err := s.sessions.CountSessionsForUser(userID)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	userMessages, err := s.sessions.CountMessagesForUser(userID, models.RoleUser)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	aiMessages, err := s.sessions.CountMessagesForUser(userID, models.RoleAI)
	if err != nil {
		return nil, apperrors.LogAndReturn500(err)
	}
	return &UsageStats{
		TotalSessions:    sessions,
		TotalMessages:    userMessages,
		TotalAIResponses: aiMessages,
		ContextStore:     s.contextStore.Stats(),
	}, nil
}

// validateParent checks that the supplied parent exists in the same session
// and that its ancestor chain terminates. The walk bails out on any revisit
// so a message can never name itself or a descendant as parent.
func (s *ChatService) validateParent(sessionID, parentID uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{})
	current := parentID
	for depth := 0; depth < maxParentDepth; depth++ {
		msg, err := s.sessions.GetMessage(current)
		if err != nil || msg.SessionID != sessionID {
			return apperrors.New400Error("Parent message not found in this session")
		}
		if _, ok := seen[msg.ID]; ok {
			return apperrors.New400Error("Parent message chain contains a cycle")
		}
		seen[msg.ID] = struct{}{}
		if msg.ParentMessageID == nil {
			return nil
		}
		current = *msg.ParentMessageID
	}
	return apperrors.New400Error("Parent message chain is too deep")
}

// buildGenerationMessages assembles the provider request: the fixed
// mediation instruction (with topic and retrieved context appended when
// available), recent history, then the new message.
func buildGenerationMessages(session *models.ChatSession, history []models.ChatMessage, retrieved []rag.SearchResult, content string) []provider.Message {
	system := mediationSystemPrompt
	if session.Topic != "" {
		system += fmt.Sprintf("\n\nThe couple is currently focused on: %s", session.Topic)
	}
	if len(retrieved) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\nRelevant context from earlier in this relationship:\n")
		for _, r := range retrieved {
			fmt.Fprintf(&sb, "- %s\n", r.Content)
		}
		system += sb.String()
	}

	messages := []provider.Message{{Role: provider.RoleSystem, Content: system}}
	for _, msg := range history {
		role := provider.RoleUser
		if msg.Role == models.RoleAI {
			role = provider.RoleAssistant
		}
		messages = append(messages, provider.Message{Role: role, Content: msg.Content})
	}
	return append(messages, provider.Message{Role: provider.RoleUser, Content: content})
}

func (s *ChatService) storeExchangeContext(ctx context.Context, sessionID uuid.UUID, userMessage, aiMessage *models.ChatMessage) {
	userMsgID := userMessage.ID
	s.contextStore.Store(ctx, sessionID, userMessage.Content, models.ChunkTypeMessage, &userMsgID, map[string]interface{}{
		"role": userMessage.Role,
	})
	aiMsgID := aiMessage.ID
	s.contextStore.Store(ctx, sessionID, aiMessage.Content, models.ChunkTypeMessage, &aiMsgID, map[string]interface{}{
		"role":        models.RoleAI,
		"tokens_used": aiMessage.TokensUsed,
	})
}

// broadcastReply pushes the AI reply to every session participant except
// the sender, who receives it in the HTTP response.
func (s *ChatService) broadcastReply(session *models.ChatSession, senderID uuid.UUID, aiMessage *models.ChatMessage) {
	participants := []uuid.UUID{session.UserID}
	if session.PartnerUserID != nil {
		participants = append(participants, *session.PartnerUserID)
	}
	s.events.SendToUsers(participants, &senderID, wsocket.NewMessageEvent(
		session.ID, aiMessage.Content, nil,
		map[string]interface{}{
			"role":        models.RoleAI,
			"tokens_used": aiMessage.TokensUsed,
		},
	))
}

// suggestedActions runs the secondary generation call. Its failure never
// blocks the exchange; a fixed generic trio stands in.
func (s *ChatService) suggestedActions(ctx context.Context, userMessage, aiReply string) []string {
	prompt := fmt.Sprintf(`Based on this relationship advice conversation:

User message: %q
AI response: %q

Generate 2-3 specific, actionable suggestions that the user could take. Format as a simple list, one suggestion per line.

Keep suggestions practical and specific to their situation.`, userMessage, aiReply)

	result, err := s.ai.Generate(ctx, provider.GenerationRequest{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: prompt}},
		MaxTokens:   suggestionsMaxTokens,
		Temperature: suggestionsTemp,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate suggested actions")
		return fallbackSuggestions
	}

	var suggestions []string
	for _, line := range strings.Split(result.Text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == maxSuggestedActions {
			break
		}
	}
	if len(suggestions) == 0 {
		return fallbackSuggestions
	}
	return suggestions
}
