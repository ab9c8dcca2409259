package ws

import (
	"encoding/json"

	"github.com/sparkmatch/messaging-service/internal/models"
)

// Wire protocol. Client to server: join-chat, leave-chat, send-message.
// Server to client: message, error.
const (
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventSendMessage = "send-message"
	EventMessage     = "message"
	EventError       = "error"
)

// ClientEvent is the envelope read from a session.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the envelope written to a session.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

type SendPayload struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type MessagePayload struct {
	Message *models.Message `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
