package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"chat-gateway/internal/models"
)

func recvRaw(t *testing.T, s *Session, timeout time.Duration) []byte {
	t.Helper()
	select {
	case raw, ok := <-s.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return raw
	case <-time.After(timeout):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	_, broadcaster := newTestGateway()

	// Must neither panic nor error.
	broadcaster.Broadcast(models.TypingEvent{
		Type:   models.EventTypeTyping,
		UserID: 1,
		RoomID: 42,
	}, 42)
}

func TestBroadcastReachesAllRoomSessions(t *testing.T) {
	registry, broadcaster := newTestGateway()

	a := newTestSession(t, 1, "alice", 10)
	b := newTestSession(t, 2, "bob", 10)
	other := newTestSession(t, 3, "carol", 20)
	registry.Register(a)
	registry.Register(b)
	registry.Register(other)
	drainActivity(t, a, 2, time.Second)
	drainActivity(t, b, 1, time.Second)
	drainActivity(t, other, 1, time.Second)

	broadcaster.Broadcast(models.TypingEvent{
		Type:     models.EventTypeTyping,
		UserID:   1,
		Username: "alice",
		RoomID:   10,
		IsTyping: true,
	}, 10)

	for _, s := range []*Session{a, b} {
		var ev models.TypingEvent
		if err := json.Unmarshal(recvRaw(t, s, time.Second), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != models.EventTypeTyping || ev.UserID != 1 || !ev.IsTyping {
			t.Fatalf("unexpected event %+v", ev)
		}
	}

	select {
	case raw := <-other.send:
		t.Fatalf("session in other room received %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

// A session that is already closing must not break delivery to the rest of
// the room, and must stay out of the teardown path: broadcast never
// deregisters anyone.
func TestBroadcastToleratesClosedSession(t *testing.T) {
	registry, broadcaster := newTestGateway()

	dead := newTestSession(t, 1, "alice", 10)
	live := newTestSession(t, 2, "bob", 10)
	registry.Register(dead)
	registry.Register(live)
	drainActivity(t, live, 1, time.Second)

	dead.closeSend()

	broadcaster.Broadcast(models.TypingEvent{
		Type:   models.EventTypeTyping,
		UserID: 2,
		RoomID: 10,
	}, 10)

	var ev models.TypingEvent
	if err := json.Unmarshal(recvRaw(t, live, time.Second), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.UserID != 2 {
		t.Fatalf("unexpected event %+v", ev)
	}

	// Delivery failure is not deregistration; the owning handler does that.
	if got := sortedUsers(registry.ActiveUsers(10)); !equalInts(got, []int{1, 2}) {
		t.Fatalf("ActiveUsers = %v, want [1 2]", got)
	}
}

func TestBroadcastToleratesFullBuffer(t *testing.T) {
	registry, broadcaster := newTestGateway()

	slow, err := NewSession(nil, 1, "alice", 10, nil, nil, nil, 1)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	live := newTestSession(t, 2, "bob", 10)
	registry.Register(slow)
	registry.Register(live)
	drainActivity(t, live, 1, time.Second)

	// slow's single-slot buffer already holds its own join event; further
	// deliveries to it are dropped, not fatal.
	for i := 0; i < 3; i++ {
		broadcaster.Broadcast(models.TypingEvent{
			Type:   models.EventTypeTyping,
			UserID: 2,
			RoomID: 10,
		}, 10)
	}

	for i := 0; i < 3; i++ {
		var ev models.TypingEvent
		if err := json.Unmarshal(recvRaw(t, live, time.Second), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != models.EventTypeTyping {
			t.Fatalf("unexpected event %+v", ev)
		}
	}

	if got := sortedUsers(registry.ActiveUsers(10)); !equalInts(got, []int{1, 2}) {
		t.Fatalf("ActiveUsers = %v, want [1 2]", got)
	}
}

// Sequential broadcasts from a single caller arrive in call order.
func TestBroadcastOrderWithinCaller(t *testing.T) {
	registry, broadcaster := newTestGateway()

	s := newTestSession(t, 1, "alice", 10)
	registry.Register(s)
	drainActivity(t, s, 1, time.Second)

	for i := 0; i < 5; i++ {
		broadcaster.Broadcast(models.NewMessageEvent{
			Type:   models.EventTypeNewMessage,
			ID:     i,
			RoomID: 10,
		}, 10)
	}

	for i := 0; i < 5; i++ {
		var ev models.NewMessageEvent
		if err := json.Unmarshal(recvRaw(t, s, time.Second), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.ID != i {
			t.Fatalf("event %d arrived out of order: %+v", i, ev)
		}
	}
}
