package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/metrics"
	"github.com/sparkmatch/messaging-service/internal/models"
)

const sendBuffer = 256

// Session is one live transport connection. A session belongs to at most one
// room at a time.
type Session struct {
	ID        string
	ProfileID string
	send      chan []byte
	done      chan struct{}
}

// trySend reports whether the payload was handed to the session's write pump.
func (s *Session) trySend(b []byte) bool {
	select {
	case s.send <- b:
		return true
	case <-s.done:
		return false
	default:
		// slow consumer, drop rather than block the broadcast
		return false
	}
}

// Hub is the process-local registry of live sessions and their room
// membership. It is pure in-memory bookkeeping: nothing here is persisted
// and the registry is rebuilt from nothing on restart.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // session id -> session
	rooms    map[string]map[string]*Session // conversation id -> session id -> session
	byRoom   map[string]string              // session id -> conversation id
	online   map[string]int                 // profile id -> live session count
	log      *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		byRoom:   make(map[string]string),
		online:   make(map[string]int),
		log:      log,
	}
}

// Register adds a new session and reports whether it is the profile's first
// live connection.
func (h *Hub) Register(sess *Session) (first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sess.ID] = sess
	h.online[sess.ProfileID]++
	return h.online[sess.ProfileID] == 1
}

// Unregister removes the session and its room membership unconditionally,
// and reports whether the profile has no live connections left.
func (h *Hub) Unregister(sessionID string) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		return false
	}
	h.leaveLocked(sessionID)
	delete(h.sessions, sessionID)
	close(sess.done)
	h.online[sess.ProfileID]--
	if h.online[sess.ProfileID] <= 0 {
		delete(h.online, sess.ProfileID)
		return true
	}
	return false
}

// Join records room membership. A session already in another room is moved:
// re-join is leave-then-join.
func (h *Hub) Join(sessionID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	h.leaveLocked(sessionID)
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[string]*Session)
		h.rooms[conversationID] = room
	}
	room[sessionID] = sess
	h.byRoom[sessionID] = conversationID
}

// Leave clears membership if it matches the given room, no-op otherwise.
func (h *Hub) Leave(sessionID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byRoom[sessionID] != conversationID {
		return
	}
	h.leaveLocked(sessionID)
}

func (h *Hub) leaveLocked(sessionID string) {
	convID, ok := h.byRoom[sessionID]
	if !ok {
		return
	}
	delete(h.byRoom, sessionID)
	if room, ok := h.rooms[convID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(h.rooms, convID)
		}
	}
}

// Broadcast delivers an already-persisted message to every session currently
// joined to the conversation's room. At-most-once, no replay: sessions not
// joined right now get nothing and recover via paginated history.
func (h *Hub) Broadcast(conversationID string, msg *models.Message) {
	payload, err := json.Marshal(ServerEvent{
		Event: EventMessage,
		Data:  MessagePayload{Message: msg},
	})
	if err != nil {
		h.log.Errorw("marshal broadcast", "conversation_id", conversationID, "error", err)
		return
	}

	h.mu.RLock()
	room := h.rooms[conversationID]
	targets := make([]*Session, 0, len(room))
	for _, sess := range room {
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sess := range targets {
		if sess.trySend(payload) {
			delivered++
		}
	}
	metrics.BroadcastDeliveries.Add(float64(delivered))
}

// RoomSize is used by tests and metrics.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
