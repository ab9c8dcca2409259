package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sparkmatch/messaging-service/internal/models"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// PageOpts selects a window of messages, newest first. Cursor is the id of
// the last message of the previous page; empty means start from the newest.
type PageOpts struct {
	Limit  int
	Cursor string
}

// Page describes the window that was actually returned.
type Page struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ConversationStore owns durable conversation state and pagination semantics.
type ConversationStore interface {
	FindByParticipants(ctx context.Context, participants []string) (*models.Conversation, error)
	Create(ctx context.Context, participants []string) (*models.Conversation, error)
	FindByID(ctx context.Context, id string, opts PageOpts) (*models.Conversation, Page, error)
	ListByParticipant(ctx context.Context, profileID string) ([]*models.Conversation, error)
}

// MessageAppender persists new messages.
type MessageAppender interface {
	Append(ctx context.Context, conversationID, writerID, text, msgType string) (*models.Message, error)
}

// ReadReceiptStore upserts per-participant read positions.
type ReadReceiptStore interface {
	UpsertReadReceipt(ctx context.Context, conversationID, profileID string, lastViewedAt time.Time) (*models.Conversation, error)
}
