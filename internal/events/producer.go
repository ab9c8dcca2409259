package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sparkmatch/messaging-service/internal/models"
)

// MessageSentEvent feeds downstream consumers (analytics, moderation). It is
// not a delivery channel; the live room broadcast never goes through here.
type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	WriterID       string    `json:"writer_id"`
	SentAt         time.Time `json:"sent_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: w}
}

func (p *Producer) PublishMessageSent(ctx context.Context, msg *models.Message) error {
	value, err := json.Marshal(MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		WriterID:       msg.WriterID,
		SentAt:         msg.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID),
		Value: value,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error { return p.writer.Close() }
