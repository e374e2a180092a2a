package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/services/notifications"
	"github.com/flowstate/backend/internal/app/storage/memory"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/realtime"
)

type fakePublisher struct {
	mu     sync.Mutex
	sent   map[string]int // identity -> event count
	bcasts int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{sent: make(map[string]int)}
}

func (f *fakePublisher) SendTo(identity, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == realtime.EventNewMessage {
		f.sent[identity]++
	}
}

func (f *fakePublisher) Broadcast(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == realtime.EventNewMessage {
		f.bcasts++
	}
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakePublisher, user.User, user.User) {
	t.Helper()
	store := memory.New()
	pub := newFakePublisher()
	svc := New(store, store, pub, notifications.New(store, nil, nil), nil)

	ctx := context.Background()
	ada, err := store.CreateUser(ctx, user.User{Username: "ada"})
	if err != nil {
		t.Fatalf("create ada: %v", err)
	}
	grace, err := store.CreateUser(ctx, user.User{Username: "grace"})
	if err != nil {
		t.Fatalf("create grace: %v", err)
	}
	return svc, store, pub, ada, grace
}

func TestRelayRejectsMissingSenderOrText(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Relay(ctx, "", "hello", "grace"); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("missing sender: err = %v, want validation", err)
	}
	if _, err := svc.Relay(ctx, "ada", "  ", "grace"); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("missing text: err = %v, want validation", err)
	}

	// Nothing was persisted.
	msgs, _ := store.ListConversation(ctx, "ada", "grace")
	if len(msgs) != 0 {
		t.Fatalf("messages = %d, want 0", len(msgs))
	}
}

func TestRelayDirectMessageTargetsBothParties(t *testing.T) {
	svc, store, pub, ada, grace := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Relay(ctx, "ada", "hi grace", "grace")
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if msg.ID == "" || msg.Timestamp.IsZero() {
		t.Fatalf("message not fully persisted: %+v", msg)
	}

	if pub.bcasts != 0 {
		t.Fatalf("broadcasts = %d, want 0 for direct message", pub.bcasts)
	}
	if pub.sent[ada.ID] != 1 || pub.sent[grace.ID] != 1 {
		t.Fatalf("sends = %v, want one per party", pub.sent)
	}

	// Exactly one notification, for the receiver.
	notifs, _ := store.ListNotifications(ctx, grace.ID)
	if len(notifs) != 1 {
		t.Fatalf("receiver notifications = %d, want 1", len(notifs))
	}
	if notifs[0].Type != notification.TypeMessage || notifs[0].Message != "You received a new message from ada" {
		t.Fatalf("notification = %+v", notifs[0])
	}
	senderNotifs, _ := store.ListNotifications(ctx, ada.ID)
	if len(senderNotifs) != 0 {
		t.Fatalf("sender notifications = %d, want 0", len(senderNotifs))
	}
}

func TestRelayPublicMessageBroadcasts(t *testing.T) {
	svc, store, pub, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Relay(ctx, "ada", "hello room", ""); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if pub.bcasts != 1 {
		t.Fatalf("broadcasts = %d, want 1", pub.bcasts)
	}

	// No receiver, no notification.
	for _, u := range []string{"ada", "grace"} {
		usr, _ := store.GetUserByUsername(ctx, u)
		if notifs, _ := store.ListNotifications(ctx, usr.ID); len(notifs) != 0 {
			t.Fatalf("%s notifications = %d, want 0", u, len(notifs))
		}
	}
}

func TestRelayUnknownReceiverStillPersists(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Relay(ctx, "ada", "anyone there?", "ghost"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	msgs, _ := store.ListConversation(ctx, "ada", "ghost")
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
}

func TestBroadcastDeliveryMode(t *testing.T) {
	svc, _, pub, _, _ := newTestService(t)
	svc = svc.WithBroadcastDelivery()

	if _, err := svc.Relay(context.Background(), "ada", "hi", "grace"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if pub.bcasts != 1 || len(pub.sent) != 0 {
		t.Fatalf("bcasts = %d sent = %v, want broadcast only", pub.bcasts, pub.sent)
	}
}

func TestHistoryIsSymmetricAndOrdered(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, m := range []struct{ sender, text, receiver string }{
		{"ada", "first", "grace"},
		{"grace", "second", "ada"},
		{"ada", "third", "grace"},
		{"ada", "other thread", "bob"},
	} {
		if _, err := svc.Relay(ctx, m.sender, m.text, m.receiver); err != nil {
			t.Fatalf("relay %q: %v", m.text, err)
		}
	}

	forward, err := svc.History(ctx, "ada", "grace")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	backward, err := svc.History(ctx, "grace", "ada")
	if err != nil {
		t.Fatalf("history reversed: %v", err)
	}

	if len(forward) != 3 || len(backward) != 3 {
		t.Fatalf("history lengths = %d/%d, want 3/3", len(forward), len(backward))
	}
	for i, want := range []string{"first", "second", "third"} {
		if forward[i].Text != want {
			t.Fatalf("forward[%d] = %q, want %q", i, forward[i].Text, want)
		}
		if backward[i].Text != forward[i].Text {
			t.Fatalf("asymmetric history at %d: %q vs %q", i, backward[i].Text, forward[i].Text)
		}
	}
}
