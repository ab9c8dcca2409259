package models

import "time"

// Message is immutable once written; the core has no edit or delete path.
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	WriterID       string    `bson:"writer_id" json:"writer_id"`
	Text           string    `bson:"text" json:"text"`
	MsgType        string    `bson:"msg_type,omitempty" json:"msg_type,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}
