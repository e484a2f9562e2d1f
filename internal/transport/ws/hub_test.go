package ws

import (
	"sync"
	"testing"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func TestHub_BroadcastReachesRoomOnly(t *testing.T) {
	h := NewHub()
	a, b, outsider := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Join(a, "chat-1")
	h.Join(b, "chat-1")
	h.Join(outsider, "chat-2")

	h.EmitToRoom("chat-1", "message_received", "payload")

	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Fatal("room members must receive the event")
	}
	if len(outsider.received()) != 0 {
		t.Fatal("other rooms must stay silent")
	}
}

func TestHub_PersonalChannel(t *testing.T) {
	h := NewHub()
	alice, bob := &fakeConn{}, &fakeConn{}
	h.Join(alice, UserChannel("alice"))
	h.Join(bob, UserChannel("bob"))

	h.EmitToUser("alice", "notification", "payload")

	if len(alice.received()) != 1 {
		t.Fatal("alice must receive the event")
	}
	if len(bob.received()) != 0 {
		t.Fatal("bob must not receive alice's event")
	}

	got := alice.received()[0]
	if got.Type != "notification" {
		t.Fatalf("unexpected event type: %q", got.Type)
	}
}

func TestHub_ConnCanSitInManyRooms(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Join(c, UserChannel("alice"))
	h.Join(c, "chat-1")
	h.Join(c, "chat-2")

	h.EmitToRoom("chat-1", "e1", nil)
	h.EmitToRoom("chat-2", "e2", nil)
	h.EmitToUser("alice", "e3", nil)

	if len(c.received()) != 3 {
		t.Fatalf("expected 3 events, got %d", len(c.received()))
	}
}

func TestHub_RemoveConnLeavesAllRooms(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Join(c, UserChannel("alice"))
	h.Join(c, "chat-1")

	h.RemoveConn(c)

	h.EmitToRoom("chat-1", "e", nil)
	h.EmitToUser("alice", "e", nil)
	if len(c.received()) != 0 {
		t.Fatalf("removed connection must not receive events, got %d", len(c.received()))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rooms) != 0 || len(h.conns) != 0 {
		t.Fatalf("empty rooms must be cleaned up: rooms=%d conns=%d", len(h.rooms), len(h.conns))
	}
}

func TestHub_LeaveSingleRoom(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Join(c, "chat-1")
	h.Join(c, "chat-2")

	h.Leave(c, "chat-1")

	h.EmitToRoom("chat-1", "e", nil)
	if len(c.received()) != 0 {
		t.Fatal("left room must stay silent")
	}
	h.EmitToRoom("chat-2", "e", nil)
	if len(c.received()) != 1 {
		t.Fatal("remaining room must still deliver")
	}
}
