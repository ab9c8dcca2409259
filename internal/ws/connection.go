package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/sparkmatch/messaging-service/internal/service"
)

const (
	readLimit     = 32 * 1024
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	writeWait     = 10 * time.Second
	appendTimeout = 10 * time.Second
)

func NewSession(profileID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// connection ties a hub session to its underlying websocket.
type connection struct {
	ws   *websocket.Conn
	sess *Session
	srv  *Server
}

func (c *connection) readPump() {
	defer func() {
		c.srv.disconnect(c.sess)
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var ev ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// ignore invalid JSON from client, don't disconnect
			continue
		}
		c.handle(ev)
	}
}

func (c *connection) handle(ev ClientEvent) {
	switch ev.Event {
	case EventJoinChat:
		var p JoinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		c.srv.hub.Join(c.sess.ID, p.ConversationID)
	case EventLeaveChat:
		var p JoinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		c.srv.hub.Leave(c.sess.ID, p.ConversationID)
	case EventSendMessage:
		var p SendPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		if _, err := c.srv.sender.AppendMessage(ctx, p.ConversationID, c.sess.ProfileID, p.Message); err != nil {
			c.sendError(err)
		}
		// delivery to the room happens through the orchestration's
		// post-commit broadcast, same as the HTTP path
	}
}

func (c *connection) sendError(err error) {
	msg := "message rejected"
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUnauthorized):
		msg = err.Error()
	}
	b, merr := json.Marshal(ServerEvent{Event: EventError, Data: ErrorPayload{Message: msg}})
	if merr != nil {
		return
	}
	c.sess.trySend(b)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg := <-c.sess.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.sess.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
			return
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
