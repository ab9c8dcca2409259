package push

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/models"
	"github.com/sparkmatch/messaging-service/internal/profile"
)

type fakeChannel struct {
	mu    sync.Mutex
	err   error
	sends []string // tokens
}

func (f *fakeChannel) SendToDevice(_ context.Context, token, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, token)
	return f.err
}

type staticDirectory map[string]*models.Profile

func (d staticDirectory) FindByID(_ context.Context, id string) (*models.Profile, error) {
	if p, ok := d[id]; ok {
		return p, nil
	}
	return nil, profile.ErrProfileNotFound
}

func (d staticDirectory) FindByAccountID(_ context.Context, _ string) (*models.Profile, error) {
	return nil, profile.ErrProfileNotFound
}

func testConversation() *models.Conversation {
	return &models.Conversation{
		ID:           "conv-1",
		Participants: []string{"alice", "bob"},
		CreatedAt:    time.Now().UTC(),
	}
}

func TestNotifyOthers_SendsToNonSenderWithToken(t *testing.T) {
	req := require.New(t)
	ch := &fakeChannel{}
	dir := staticDirectory{
		"alice": {ID: "alice", Nickname: "Alice", DeviceToken: "tok-a"},
		"bob":   {ID: "bob", Nickname: "Bob", DeviceToken: "tok-b"},
	}
	n := NewNotifier(ch, dir, zap.NewNop().Sugar())

	msg := &models.Message{ID: "m1", ConversationID: "conv-1", WriterID: "alice", Text: "hi"}
	req.NoError(n.NotifyOthers(context.Background(), testConversation(), "alice", msg))
	req.Equal([]string{"tok-b"}, ch.sends)
}

func TestNotifyOthers_SkipsParticipantsWithoutToken(t *testing.T) {
	req := require.New(t)
	ch := &fakeChannel{}
	dir := staticDirectory{
		"alice": {ID: "alice", Nickname: "Alice", DeviceToken: "tok-a"},
		"bob":   {ID: "bob", Nickname: "Bob"}, // no device token
	}
	n := NewNotifier(ch, dir, zap.NewNop().Sugar())

	msg := &models.Message{ID: "m1", WriterID: "alice", Text: "hi"}
	req.NoError(n.NotifyOthers(context.Background(), testConversation(), "alice", msg))
	req.Empty(ch.sends)
}

func TestNotifyOthers_SwallowsChannelErrors(t *testing.T) {
	req := require.New(t)
	ch := &fakeChannel{err: errors.New("provider unavailable")}
	dir := staticDirectory{
		"bob": {ID: "bob", Nickname: "Bob", DeviceToken: "tok-b"},
	}
	n := NewNotifier(ch, dir, zap.NewNop().Sugar())

	msg := &models.Message{ID: "m1", WriterID: "alice", Text: "hi"}
	req.NoError(n.NotifyOthers(context.Background(), testConversation(), "alice", msg))
	req.Len(ch.sends, 1)
}

func TestTruncateBody(t *testing.T) {
	req := require.New(t)
	req.Equal("short", TruncateBody("short"))

	exact := strings.Repeat("a", 100)
	req.Equal(exact, TruncateBody(exact))

	long := strings.Repeat("a", 101)
	got := TruncateBody(long)
	req.Equal(strings.Repeat("a", 100)+"…", got)

	// rune aware, not byte aware
	multi := strings.Repeat("é", 150)
	got = TruncateBody(multi)
	req.Equal([]rune(multi)[:100], []rune(got)[:100])
	req.Equal('…', []rune(got)[100])
}
