package notifications

import (
	"context"
	"sync"
	"testing"

	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage/memory"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/realtime"
)

type fakePublisher struct {
	mu   sync.Mutex
	sent []string // identities that received a notification event
}

func (f *fakePublisher) SendTo(identity, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == realtime.EventNotification {
		f.sent = append(f.sent, identity)
	}
}

func (f *fakePublisher) Broadcast(event string, payload any) {}

func TestNotifyPersistsThenPushes(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{}
	svc := New(store, pub, nil)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Username: "ada"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	created, err := svc.Notify(ctx, u.ID, "Friend Request", "grace sent you a friend request!", notification.TypeFriendRequest, "grace")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if created.ID == "" {
		t.Fatal("notification not assigned an id")
	}

	stored, err := store.GetNotification(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Read {
		t.Fatal("new notification must start unread")
	}
	if stored.Sender != "grace" {
		t.Fatalf("sender = %q", stored.Sender)
	}

	if len(pub.sent) != 1 || pub.sent[0] != u.ID {
		t.Fatalf("pushed to = %v, want [%s]", pub.sent, u.ID)
	}
}

func TestNotifyDefaultsType(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)

	created, err := svc.Notify(context.Background(), "u1", "Hello", "world", "", "")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if created.Type != notification.TypeInfo {
		t.Fatalf("type = %q, want info", created.Type)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)
	ctx := context.Background()

	for _, title := range []string{"oldest", "middle", "newest"} {
		if _, err := store.CreateNotification(ctx, notification.Notification{UserID: "u1", Title: title}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Title != "newest" || list[2].Title != "oldest" {
		t.Fatalf("order = %q..%q, want newest first", list[0].Title, list[2].Title)
	}
}

func TestOwnerScoping(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)
	ctx := context.Background()

	created, err := svc.Notify(ctx, "owner", "Private", "eyes only", notification.TypeInfo, "")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if err := svc.MarkRead(ctx, "intruder", created.ID); !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("mark read err = %v, want unauthorized", err)
	}
	if err := svc.Delete(ctx, "intruder", created.ID); !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("delete err = %v, want unauthorized", err)
	}

	// The record is intact after the failed attempts.
	if _, err := store.GetNotification(ctx, created.ID); err != nil {
		t.Fatalf("notification gone after denied delete: %v", err)
	}

	if err := svc.MarkRead(ctx, "owner", created.ID); err != nil {
		t.Fatalf("owner mark read: %v", err)
	}
	got, _ := store.GetNotification(ctx, created.ID)
	if !got.Read {
		t.Fatal("notification still unread")
	}
}

func TestClearRemovesOnlyCallers(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)
	ctx := context.Background()

	for _, owner := range []string{"ada", "ada", "grace"} {
		if _, err := svc.Notify(ctx, owner, "t", "m", "", ""); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if err := svc.Clear(ctx, "ada"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	adaLeft, _ := svc.List(ctx, "ada")
	graceLeft, _ := svc.List(ctx, "grace")
	if len(adaLeft) != 0 || len(graceLeft) != 1 {
		t.Fatalf("after clear: ada=%d grace=%d, want 0/1", len(adaLeft), len(graceLeft))
	}
}
