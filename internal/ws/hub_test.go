package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/metrics"
	"github.com/sparkmatch/messaging-service/internal/models"
)

func testMessage(id string) *models.Message {
	return &models.Message{
		ID:             id,
		ConversationID: "conv-1",
		WriterID:       "alice",
		Text:           "hello",
		CreatedAt:      time.Now().UTC(),
	}
}

func drain(t *testing.T, sess *Session) []ServerEvent {
	t.Helper()
	var out []ServerEvent
	for {
		select {
		case b := <-sess.send:
			var ev ServerEvent
			require.NoError(t, json.Unmarshal(b, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHub_BroadcastReachesOnlyJoinedSessions(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	joined := NewSession("alice")
	other := NewSession("bob")
	elsewhere := NewSession("carol")
	hub.Register(joined)
	hub.Register(other)
	hub.Register(elsewhere)

	hub.Join(joined.ID, "conv-1")
	hub.Join(elsewhere.ID, "conv-2")

	hub.Broadcast("conv-1", testMessage("m1"))

	req.Len(drain(t, joined), 1)
	req.Empty(drain(t, other))
	req.Empty(drain(t, elsewhere))
}

func TestHub_JoinSwitchesRoom(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	sess := NewSession("alice")
	hub.Register(sess)

	hub.Join(sess.ID, "conv-1")
	hub.Join(sess.ID, "conv-2")
	req.Zero(hub.RoomSize("conv-1"))
	req.Equal(1, hub.RoomSize("conv-2"))

	hub.Broadcast("conv-1", testMessage("m1"))
	req.Empty(drain(t, sess))
	hub.Broadcast("conv-2", testMessage("m2"))
	req.Len(drain(t, sess), 1)
}

func TestHub_LeaveIgnoresMismatchedRoom(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	sess := NewSession("alice")
	hub.Register(sess)
	hub.Join(sess.ID, "conv-1")

	hub.Leave(sess.ID, "conv-2")
	req.Equal(1, hub.RoomSize("conv-1"))

	hub.Leave(sess.ID, "conv-1")
	req.Zero(hub.RoomSize("conv-1"))
}

func TestHub_UnregisterClearsMembershipAndPresenceCount(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	first := NewSession("alice")
	second := NewSession("alice")
	req.True(hub.Register(first))
	req.False(hub.Register(second))

	hub.Join(first.ID, "conv-1")
	req.False(hub.Unregister(first.ID))
	req.Zero(hub.RoomSize("conv-1"))
	req.True(hub.Unregister(second.ID))

	// unknown session is a no-op
	req.False(hub.Unregister("ghost"))
}

func TestHub_BroadcastCountsOnlyDeliveredSends(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	live := NewSession("alice")
	saturated := NewSession("bob")
	hub.Register(live)
	hub.Register(saturated)
	hub.Join(live.ID, "conv-1")
	hub.Join(saturated.ID, "conv-1")
	for i := 0; i < sendBuffer; i++ {
		req.True(saturated.trySend([]byte("{}")))
	}
	req.False(saturated.trySend([]byte("{}")))

	before := testutil.ToFloat64(metrics.BroadcastDeliveries)
	hub.Broadcast("conv-1", testMessage("m1"))
	req.Equal(before+1, testutil.ToFloat64(metrics.BroadcastDeliveries))

	req.Len(drain(t, live), 1)
	req.Len(drain(t, saturated), sendBuffer)
}

func TestHub_BroadcastAfterDisconnectDoesNotPanic(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	sess := NewSession("alice")
	hub.Register(sess)
	hub.Join(sess.ID, "conv-1")
	hub.Unregister(sess.ID)
	hub.Broadcast("conv-1", testMessage("m1"))
}

func TestHub_ConcurrentJoinLeaveBroadcast(t *testing.T) {
	req := require.New(t)
	hub := NewHub(zap.NewNop().Sugar())

	const sessions = 32
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess := NewSession(fmt.Sprintf("profile-%d", n))
			hub.Register(sess)
			room := fmt.Sprintf("conv-%d", n%4)
			for j := 0; j < 50; j++ {
				hub.Join(sess.ID, room)
				hub.Broadcast(room, testMessage(fmt.Sprintf("m-%d-%d", n, j)))
				hub.Leave(sess.ID, room)
			}
			hub.Unregister(sess.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		req.Zero(hub.RoomSize(fmt.Sprintf("conv-%d", i)))
	}
}
