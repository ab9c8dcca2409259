package ws

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/models"
)

// MessageSender is the slice of the orchestration the transport needs.
type MessageSender interface {
	AppendMessage(ctx context.Context, conversationID, writerID, text string) (*models.Message, error)
}

// Presence flags a profile online/offline, best effort.
type Presence interface {
	SetPresence(ctx context.Context, profileID string, online bool) error
}

// TokenVerifier resolves a bearer token to a canonical profile id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Server upgrades connections, authenticates them and runs the pumps.
type Server struct {
	hub      *Hub
	sender   MessageSender
	presence Presence
	verifier TokenVerifier
	log      *zap.SugaredLogger
}

func NewServer(hub *Hub, sender MessageSender, presence Presence, verifier TokenVerifier, log *zap.SugaredLogger) *Server {
	return &Server{hub: hub, sender: sender, presence: presence, verifier: verifier, log: log}
}

// Handler is registered under websocket.New by the HTTP server.
// Expected URL: /ws?token=<jwt>
func (s *Server) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		profileID, err := s.verifier.Verify(token)
		if err != nil {
			_ = conn.Close()
			return
		}

		sess := NewSession(profileID)
		first := s.hub.Register(sess)
		if first {
			s.setPresence(profileID, true)
		}
		s.log.Infow("session connected", "session_id", sess.ID, "profile_id", profileID)

		c := &connection{ws: conn, sess: sess, srv: s}
		go c.writePump()
		c.readPump()
	}
}

// disconnect removes the session from the registry. In-flight push sends are
// unaffected; they run on their own detached context.
func (s *Server) disconnect(sess *Session) {
	last := s.hub.Unregister(sess.ID)
	if last {
		s.setPresence(sess.ProfileID, false)
	}
	s.log.Infow("session disconnected", "session_id", sess.ID, "profile_id", sess.ProfileID)
}

func (s *Server) setPresence(profileID string, online bool) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.presence.SetPresence(ctx, profileID, online); err != nil {
		s.log.Warnw("set presence", "profile_id", profileID, "online", online, "error", err)
	}
}
