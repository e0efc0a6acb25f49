package wsocket

import "github.com/google/uuid"

// Outbound event types. Every event carries a session_id where it applies;
// clients filter on it.
const (
	EventTypeMessage       = "message"
	EventTypeTyping        = "typing"
	EventTypeInvitation    = "invitation"
	EventTypePartnerJoined = "partner_joined"
	EventTypePartnerLeft   = "partner_left"
	EventTypePong          = "pong"
)

// MessageEvent announces a new message in a session. UserID is nil for
// machine-authored messages.
type MessageEvent struct {
	Type      string                 `json:"type"`
	SessionID uuid.UUID              `json:"session_id"`
	Content   string                 `json:"content"`
	UserID    *uuid.UUID             `json:"user_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func NewMessageEvent(sessionID uuid.UUID, content string, userID *uuid.UUID, metadata map[string]interface{}) MessageEvent {
	return MessageEvent{
		Type:      EventTypeMessage,
		SessionID: sessionID,
		Content:   content,
		UserID:    userID,
		Metadata:  metadata,
	}
}

// TypingEvent relays a typing indicator to the session's other participants.
type TypingEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
}

// InvitationEvent notifies about an invitation being created or responded to.
type InvitationEvent struct {
	Type         string    `json:"type"`
	InvitationID uuid.UUID `json:"invitation_id"`
	SessionID    uuid.UUID `json:"session_id"`
	InviterID    uuid.UUID `json:"inviter_id"`
	InviteeID    uuid.UUID `json:"invitee_id"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

// PartnerEvent announces a partner joining or leaving a session.
type PartnerEvent struct {
	Type        string    `json:"type"`
	SessionID   uuid.UUID `json:"session_id"`
	PartnerID   uuid.UUID `json:"partner_id"`
	PartnerName string    `json:"partner_name"`
	Message     string    `json:"message"`
}

type pongEvent struct {
	Type string `json:"type"`
}
