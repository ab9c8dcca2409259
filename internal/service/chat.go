package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/metrics"
	"github.com/sparkmatch/messaging-service/internal/models"
	"github.com/sparkmatch/messaging-service/internal/profile"
	"github.com/sparkmatch/messaging-service/internal/repository"
)

// MaxMessageRunes bounds message text length after trimming.
const MaxMessageRunes = 1000

const sideEffectTimeout = 10 * time.Second

// Broadcaster fans a persisted message out to live sessions in its room.
type Broadcaster interface {
	Broadcast(conversationID string, msg *models.Message)
}

// Notifier pushes a persisted message to the non-sender participants'
// devices. Best effort only.
type Notifier interface {
	NotifyOthers(ctx context.Context, conv *models.Conversation, senderID string, msg *models.Message) error
}

// EventPublisher emits domain events for downstream consumers.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, msg *models.Message) error
}

// ConversationWithProfiles is the create-or-find result: the conversation
// plus whichever participant snapshots the directory could resolve.
type ConversationWithProfiles struct {
	Conversation *models.Conversation `json:"chat"`
	Profiles     []*models.Profile    `json:"profiles"`
}

// ConversationDetail carries one paginated window of a conversation.
type ConversationDetail struct {
	Conversation *models.Conversation `json:"chat"`
	Page         repository.Page      `json:"pagination"`
}

// ChatService coordinates the store, the live gateway and the push fan-out.
// Writes go through the store; the gateway and notifier only ever see
// messages that were already persisted.
type ChatService struct {
	store    repository.ConversationStore
	appender repository.MessageAppender
	receipts repository.ReadReceiptStore
	profiles profile.Directory
	gateway  Broadcaster
	notifier Notifier
	events   EventPublisher
	log      *zap.SugaredLogger
}

func NewChatService(
	store repository.ConversationStore,
	appender repository.MessageAppender,
	receipts repository.ReadReceiptStore,
	profiles profile.Directory,
	gateway Broadcaster,
	notifier Notifier,
	events EventPublisher,
	log *zap.SugaredLogger,
) *ChatService {
	return &ChatService{
		store:    store,
		appender: appender,
		receipts: receipts,
		profiles: profiles,
		gateway:  gateway,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// CreateOrFind opens the conversation for the unordered pair, creating it on
// first contact. A participant whose profile is gone is omitted from the
// snapshots instead of failing the call.
func (s *ChatService) CreateOrFind(ctx context.Context, callerID, targetID string) (*ConversationWithProfiles, error) {
	if targetID == "" {
		return nil, validationError("target profile id is required")
	}
	if callerID == targetID {
		return nil, validationError("cannot open a conversation with yourself")
	}

	pair := models.CanonicalPair(callerID, targetID)
	conv, err := s.store.FindByParticipants(ctx, pair)
	if errors.Is(err, repository.ErrNotFound) {
		conv, err = s.store.Create(ctx, pair)
	}
	if err != nil {
		return nil, err
	}

	result := &ConversationWithProfiles{Conversation: conv, Profiles: []*models.Profile{}}
	for _, pid := range conv.Participants {
		p, err := s.profiles.FindByID(ctx, pid)
		if err != nil {
			s.log.Warnw("profile lookup failed, omitting from result",
				"profile_id", pid, "conversation_id", conv.ID, "error", err)
			continue
		}
		result.Profiles = append(result.Profiles, p)
	}
	return result, nil
}

// ListForCaller returns the caller's conversations, most recently active
// first, each with only its latest message embedded.
func (s *ChatService) ListForCaller(ctx context.Context, callerID string) ([]*models.Conversation, error) {
	return s.store.ListByParticipant(ctx, callerID)
}

// GetByID returns one paginated window of the conversation's history.
// Membership is settled before any cursor is resolved; a non-participant
// learns nothing about which message ids exist.
func (s *ChatService) GetByID(ctx context.Context, conversationID, callerID string, opts repository.PageOpts) (*ConversationDetail, error) {
	if opts.Cursor != "" {
		pre, _, err := s.store.FindByID(ctx, conversationID, repository.PageOpts{Limit: 1})
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if !pre.HasParticipant(callerID) {
			return nil, ErrUnauthorized
		}
	}

	conv, page, err := s.store.FindByID(ctx, conversationID, opts)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, repository.ErrInvalidCursor) {
		return nil, validationError("unknown cursor %q", opts.Cursor)
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, ErrUnauthorized
	}
	return &ConversationDetail{Conversation: conv, Page: page}, nil
}

// AppendMessage validates and persists a message, then dispatches the live
// broadcast, the push fan-out and the message.sent event as independent
// best-effort tasks. None of the three can fail the append.
func (s *ChatService) AppendMessage(ctx context.Context, conversationID, writerID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, validationError("message text exceeds %d characters", MaxMessageRunes)
	}

	conv, err := s.authorizedConversation(ctx, conversationID, writerID)
	if err != nil {
		return nil, err
	}

	msg, err := s.appender.Append(ctx, conversationID, writerID, text, "text")
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	s.dispatchPostCommit(conv, msg)
	return msg, nil
}

// UpdateReadReceipt overwrites the caller's last-viewed position. Timestamps
// are accepted as given, including moves backward.
func (s *ChatService) UpdateReadReceipt(ctx context.Context, conversationID, profileID string, lastViewedAt time.Time) (*models.Conversation, error) {
	if _, err := s.authorizedConversation(ctx, conversationID, profileID); err != nil {
		return nil, err
	}
	return s.receipts.UpsertReadReceipt(ctx, conversationID, profileID, lastViewedAt)
}

// authorizedConversation loads the conversation and confirms membership. An
// absent conversation reads the same as one the caller cannot access.
func (s *ChatService) authorizedConversation(ctx context.Context, conversationID, profileID string) (*models.Conversation, error) {
	conv, _, err := s.store.FindByID(ctx, conversationID, repository.PageOpts{Limit: 1})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(profileID) {
		return nil, ErrUnauthorized
	}
	return conv, nil
}

// dispatchPostCommit runs the three post-commit side effects. The broadcast
// is synchronous in-process bookkeeping; push and event publish carry their
// own timeout detached from the request context, so a client disconnect
// cannot cancel an in-flight send.
func (s *ChatService) dispatchPostCommit(conv *models.Conversation, msg *models.Message) {
	s.gateway.Broadcast(conv.ID, msg)

	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := s.notifier.NotifyOthers(ctx, conv, msg.WriterID, msg); err != nil {
				s.log.Errorw("push fan-out failed",
					"conversation_id", conv.ID, "message_id", msg.ID, "error", err)
			}
		}()
	}

	if s.events != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := s.events.PublishMessageSent(ctx, msg); err != nil {
				s.log.Errorw("message.sent publish failed",
					"conversation_id", conv.ID, "message_id", msg.ID, "error", err)
			}
		}()
	}
}
