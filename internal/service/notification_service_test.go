package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

func newNotifFixture() (*NotificationService, *fakeNotifStore, *fakeMembers, *recordPublisher) {
	members := newFakeMembers()
	store := &fakeNotifStore{}
	pub := &recordPublisher{}
	svc := NewNotificationService(store, members, pub, 0)
	return svc, store, members, pub
}

func TestNewNotificationService_ProbeIntervalDefaultAndOverride(t *testing.T) {
	svc := NewNotificationService(&fakeNotifStore{}, newFakeMembers(), &recordPublisher{}, 0)
	if svc.probeEvery != defaultProbeInterval {
		t.Fatalf("probeEvery = %v, want default %v", svc.probeEvery, defaultProbeInterval)
	}
	svc = NewNotificationService(&fakeNotifStore{}, newFakeMembers(), &recordPublisher{}, time.Minute)
	if svc.probeEvery != time.Minute {
		t.Fatalf("probeEvery = %v, want %v", svc.probeEvery, time.Minute)
	}
}

func TestCreateNotification_PersistsAndEmits(t *testing.T) {
	svc, store, _, pub := newNotifFixture()

	n := svc.CreateNotification(context.Background(), CreateNotification{
		Type:        domain.NotificationChatCreated,
		RecipientID: "bob",
		Content:     "You were added to a new chat",
	})
	if n.ID == "" {
		t.Fatal("notification id must be generated")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(store.created))
	}

	evs := pub.byEvent(EventNotification)
	if len(evs) != 1 || !evs[0].ToUser || evs[0].Target != "bob" {
		t.Fatalf("expected notification on bob's channel, got %+v", evs)
	}
}

func TestCreateNotification_StoreFailureDegrades(t *testing.T) {
	svc, store, _, pub := newNotifFixture()
	store.createErr = errors.New("connection refused")

	n := svc.CreateNotification(context.Background(), CreateNotification{
		Type:        domain.NotificationNewMessage,
		RecipientID: "bob",
		Content:     "New message",
	})
	if n == nil || n.ID == "" {
		t.Fatal("degraded create must still return a notification")
	}
	if evs := pub.byEvent(EventNotification); len(evs) != 1 {
		t.Fatalf("degraded create must still emit, got %+v", evs)
	}

	// Следующий вызов внутри интервала не должен трогать базу.
	calls := store.createCalls
	svc.CreateNotification(context.Background(), CreateNotification{
		Type:        domain.NotificationNewMessage,
		RecipientID: "bob",
		Content:     "another",
	})
	if store.createCalls != calls {
		t.Fatalf("degraded mode must skip persistence, calls %d -> %d", calls, store.createCalls)
	}
}

func TestProbeThrottledAndRecovers(t *testing.T) {
	svc, store, _, _ := newNotifFixture()

	now := time.Now()
	svc.now = func() time.Time { return now }
	svc.markDegraded(errors.New("down"))

	// Inside the interval: no probe at all.
	svc.CreateNotification(context.Background(), CreateNotification{RecipientID: "bob", Type: domain.NotificationNewMessage})
	if store.pings != 0 {
		t.Fatalf("probe fired too early, pings=%d", store.pings)
	}

	// Past the interval: exactly one probe, store healthy again.
	now = now.Add(defaultProbeInterval + time.Second)
	svc.CreateNotification(context.Background(), CreateNotification{RecipientID: "bob", Type: domain.NotificationNewMessage})
	if store.pings != 1 {
		t.Fatalf("expected one probe, got %d", store.pings)
	}
	if len(store.created) != 1 {
		t.Fatalf("recovered service must persist again, got %d rows", len(store.created))
	}
}

func TestProbeFailureStaysDegraded(t *testing.T) {
	svc, store, _, _ := newNotifFixture()
	store.pingErr = errors.New("still down")

	now := time.Now()
	svc.now = func() time.Time { return now }
	svc.markDegraded(errors.New("down"))

	now = now.Add(defaultProbeInterval + time.Second)
	svc.CreateNotification(context.Background(), CreateNotification{RecipientID: "bob", Type: domain.NotificationNewMessage})
	if store.pings != 1 {
		t.Fatalf("expected one probe, got %d", store.pings)
	}
	if len(store.created) != 0 {
		t.Fatal("failed probe must keep persistence off")
	}

	// И снова не раньше следующего интервала.
	now = now.Add(time.Second)
	svc.CreateNotification(context.Background(), CreateNotification{RecipientID: "bob", Type: domain.NotificationNewMessage})
	if store.pings != 1 {
		t.Fatalf("probe must wait a full interval, got %d", store.pings)
	}
}

func TestNotifyNewMessage_PerRecipient(t *testing.T) {
	svc, store, members, pub := newNotifFixture()
	members.add("chat-1", "alice", "bob", "carol")

	msg := &domain.Message{ID: "msg-1", ChatID: "chat-1", SenderID: "alice", SenderName: "Alice", Content: "hello"}
	svc.NotifyNewMessage(context.Background(), msg)

	if len(store.created) != 2 {
		t.Fatalf("expected notifications for bob and carol, got %d", len(store.created))
	}
	for _, n := range store.created {
		if n.Type != domain.NotificationNewMessage {
			t.Fatalf("wrong type: %s", n.Type)
		}
		if !strings.HasPrefix(n.Content, "New message from Alice") {
			t.Fatalf("unexpected content: %q", n.Content)
		}
		if n.RecipientID == "alice" {
			t.Fatal("sender must not be notified")
		}
	}
	if evs := pub.byEvent(EventNewMessageNotification); len(evs) != 0 {
		t.Fatalf("room-wide fallback must not fire while connected, got %+v", evs)
	}
}

func TestNotifyNewMessage_DegradedRoomWide(t *testing.T) {
	svc, store, members, pub := newNotifFixture()
	members.add("chat-1", "alice", "bob")
	svc.markDegraded(errors.New("down"))

	msg := &domain.Message{ID: "msg-1", ChatID: "chat-1", SenderID: "alice", SenderName: "Alice", Content: "hello"}
	svc.NotifyNewMessage(context.Background(), msg)

	if len(store.created) != 0 {
		t.Fatal("degraded mode must not persist")
	}
	evs := pub.byEvent(EventNewMessageNotification)
	if len(evs) != 1 || evs[0].ToUser || evs[0].Target != "chat-1" {
		t.Fatalf("expected one room-wide event, got %+v", evs)
	}
	p := evs[0].Payload.(NewMessageNotifyPayload)
	if p.SenderID != "alice" || p.Preview != "hello" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestNotifyChatCreated_SkipsCreator(t *testing.T) {
	svc, store, _, _ := newNotifFixture()

	name := "team"
	chat := &domain.Chat{ID: "chat-1", Name: &name, Type: domain.ChatTypeGroup}
	svc.NotifyChatCreated(context.Background(), chat, "alice", []string{"alice", "bob", "carol"})

	if len(store.created) != 2 {
		t.Fatalf("expected two notifications, got %d", len(store.created))
	}
	for _, n := range store.created {
		if n.RecipientID == "alice" {
			t.Fatal("creator must not be notified")
		}
		if n.Type != domain.NotificationChatCreated {
			t.Fatalf("wrong type: %s", n.Type)
		}
	}
}

func TestMarkAsRead_DegradedSimulatesSuccess(t *testing.T) {
	svc, store, _, _ := newNotifFixture()
	svc.markDegraded(errors.New("down"))

	n := svc.MarkAsRead(context.Background(), "notif-1")
	if n == nil || !n.Read || n.ID != "notif-1" {
		t.Fatalf("expected simulated success, got %+v", n)
	}
	if len(store.marked) != 0 {
		t.Fatal("degraded mode must not touch the store")
	}
}

func TestGetUnreadNotifications_DegradedReturnsEmpty(t *testing.T) {
	svc, store, _, _ := newNotifFixture()
	store.unread = []domain.Notification{{ID: "n1", RecipientID: "bob"}}
	svc.markDegraded(errors.New("down"))

	items, next, err := svc.GetUnreadNotifications(context.Background(), "bob", 10, "")
	if err != nil {
		t.Fatalf("degraded list must not error: %v", err)
	}
	if len(items) != 0 || next != "" {
		t.Fatalf("expected empty feed, got %+v", items)
	}
}

func TestGetUnreadNotifications_ListFailureDegrades(t *testing.T) {
	svc, store, _, _ := newNotifFixture()
	store.listErr = errors.New("connection refused")

	items, _, err := svc.GetUnreadNotifications(context.Background(), "bob", 10, "")
	if err != nil {
		t.Fatalf("store failure must degrade, not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty feed, got %+v", items)
	}

	// Сервис уже в деградированном режиме: запись выключена.
	svc.CreateNotification(context.Background(), CreateNotification{RecipientID: "bob", Type: domain.NotificationNewMessage})
	if store.createCalls != 0 {
		t.Fatal("persistence must be off after degradation")
	}
}

func TestGetUnreadNotifications_InvalidCursor(t *testing.T) {
	svc, store, _, _ := newNotifFixture()
	store.listErr = domain.ErrInvalidCursor

	_, _, err := svc.GetUnreadNotifications(context.Background(), "bob", 10, "garbage")
	if !errors.Is(err, domain.ErrInvalidCursor) {
		t.Fatalf("cursor errors belong to the caller, got %v", err)
	}
}
