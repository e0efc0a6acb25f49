package wsocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ParticipantResolver reports which users may receive events for a session,
// verifying the caller is among them.
type ParticipantResolver interface {
	SessionParticipants(sessionID, callerID uuid.UUID) ([]uuid.UUID, error)
}

// Handler upgrades authenticated requests and runs the per-connection read
// loop. Authentication happens before the upgrade; the handler only ever
// sees a verified user id.
type Handler struct {
	hub      *Hub
	resolver ParticipantResolver
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, resolver ParticipantResolver, upgrader websocket.Upgrader) *Handler {
	return &Handler{
		hub:      hub,
		resolver: resolver,
		upgrader: upgrader,
	}
}

// inboundMessage is the tagged frame clients send. Unknown types are
// ignored; frames that fail to decode terminate the connection.
type inboundMessage struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	IsTyping  bool      `json:"is_typing"`
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(userID, conn)
	h.hub.Register(userID, client)
	go client.writePump()

	defer func() {
		h.hub.Unregister(userID, client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("user_id", userID.String()).Msg("websocket read error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("undecodable websocket frame, closing connection")
			return
		}

		switch msg.Type {
		case "typing":
			h.handleTyping(userID, msg)
		case "ping":
			client.trySend(pongEvent{Type: EventTypePong})
		default:
			// Unrecognized inbound types are ignored.
		}
	}
}

// handleTyping re-broadcasts a typing indicator to the session's other
// participants. Indicators for sessions the sender cannot access are
// silently dropped.
func (h *Handler) handleTyping(userID uuid.UUID, msg inboundMessage) {
	participants, err := h.resolver.SessionParticipants(msg.SessionID, userID)
	if err != nil {
		log.Debug().Err(err).Str("session_id", msg.SessionID.String()).Msg("typing indicator for inaccessible session")
		return
	}
	h.hub.SendToUsers(participants, &userID, TypingEvent{
		Type:      EventTypeTyping,
		SessionID: msg.SessionID,
		UserID:    userID,
		IsTyping:  msg.IsTyping,
	})
}
