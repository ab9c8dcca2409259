package push

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/metrics"
	"github.com/sparkmatch/messaging-service/internal/models"
	"github.com/sparkmatch/messaging-service/internal/profile"
)

const maxBodyRunes = 100

// Notifier delivers best-effort push notifications to the non-sender
// participants. Every failure is logged and swallowed here; nothing in this
// package can fail an append.
type Notifier struct {
	channel   Channel
	directory profile.Directory
	log       *zap.SugaredLogger
}

func NewNotifier(channel Channel, directory profile.Directory, log *zap.SugaredLogger) *Notifier {
	return &Notifier{channel: channel, directory: directory, log: log}
}

func (n *Notifier) NotifyOthers(ctx context.Context, conv *models.Conversation, senderID string, msg *models.Message) error {
	title := "New message"
	if sender, err := n.directory.FindByID(ctx, senderID); err == nil && sender.Nickname != "" {
		title = sender.Nickname
	}

	body := TruncateBody(msg.Text)
	data := map[string]string{
		"type":            "chat_message",
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
	}

	for _, pid := range conv.OtherParticipants(senderID) {
		p, err := n.directory.FindByID(ctx, pid)
		if err != nil {
			if !errors.Is(err, profile.ErrProfileNotFound) {
				n.log.Warnw("profile lookup for push", "profile_id", pid, "error", err)
			}
			metrics.PushOutcomes.WithLabelValues("skipped").Inc()
			continue
		}
		if p.DeviceToken == "" {
			metrics.PushOutcomes.WithLabelValues("skipped").Inc()
			continue
		}
		if err := n.channel.SendToDevice(ctx, p.DeviceToken, title, body, data); err != nil {
			n.log.Errorw("push send failed",
				"profile_id", pid, "conversation_id", conv.ID, "message_id", msg.ID, "error", err)
			metrics.PushOutcomes.WithLabelValues("failed").Inc()
			continue
		}
		metrics.PushOutcomes.WithLabelValues("sent").Inc()
	}
	return nil
}

// TruncateBody caps the notification body at 100 characters, appending an
// ellipsis when text was cut.
func TruncateBody(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBodyRunes {
		return text
	}
	return string(runes[:maxBodyRunes]) + "…"
}
