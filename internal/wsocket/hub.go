package wsocket

import (
	"context"
	"sync"

	"couple_compass_go_backend/internal/presence"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub tracks every live connection per user and fans events out to them.
// One instance lives for the whole process and is passed explicitly to the
// components that publish events. A user may hold several connections
// (multiple tabs or devices); each gets every event independently.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*Client]struct{}
	presence *presence.Tracker
}

func NewHub(tracker *presence.Tracker) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]map[*Client]struct{}),
		presence: tracker,
	}
}

// Register adds a connection to the user's set. Registering the same client
// twice is a no-op.
func (h *Hub) Register(userID uuid.UUID, client *Client) {
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	first := len(set) == 0
	set[client] = struct{}{}
	h.mu.Unlock()

	if first {
		go h.presence.SetOnline(context.Background(), userID)
	}
	log.Debug().Str("user_id", userID.String()).Msg("websocket client registered")
}

// Unregister removes a connection and drops the user's entry once its last
// connection is gone. Unregistering a client that was never registered is a
// no-op.
func (h *Hub) Unregister(userID uuid.UUID, client *Client) {
	h.mu.Lock()
	set, registered := h.clients[userID]
	if registered {
		if _, ok := set[client]; ok {
			delete(set, client)
		} else {
			registered = false
		}
	}
	last := registered && len(set) == 0
	if last {
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	if !registered {
		return
	}
	client.Close()
	if last {
		go h.presence.SetOffline(context.Background(), userID)
	}
	log.Debug().Str("user_id", userID.String()).Msg("websocket client unregistered")
}

// SendToUser delivers an event to every live connection of one user. A
// failed delivery removes only that connection; the user's other
// connections still receive the event.
func (h *Hub) SendToUser(userID uuid.UUID, event interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.trySend(event) {
			log.Warn().Str("user_id", userID.String()).Msg("dropping unresponsive websocket client")
			h.Unregister(userID, client)
		}
	}
}

// SendToUsers fans an event out to each listed user, skipping excludeUserID
// when set.
func (h *Hub) SendToUsers(userIDs []uuid.UUID, excludeUserID *uuid.UUID, event interface{}) {
	for _, userID := range userIDs {
		if excludeUserID != nil && userID == *excludeUserID {
			continue
		}
		h.SendToUser(userID, event)
	}
}

// ConnectionCount reports how many live connections a user holds.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
