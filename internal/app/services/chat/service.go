// Package chat persists messages and pushes them to live connections,
// deriving notifications for directed messages.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/message"
	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/metrics"
	"github.com/flowstate/backend/internal/app/services/notifications"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/realtime"
	"github.com/flowstate/backend/pkg/logger"
)

// Service is the chat relay.
type Service struct {
	users     storage.UserStore
	store     storage.MessageStore
	pub       realtime.Publisher
	notifier  *notifications.Service
	log       *logger.Logger
	broadcast bool
}

// New constructs a chat relay. Delivery is targeted by default; direct
// messages reach only the sender's and receiver's live connections.
func New(users storage.UserStore, store storage.MessageStore, pub realtime.Publisher, notifier *notifications.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("chat")
	}
	return &Service{users: users, store: store, pub: pub, notifier: notifier, log: log}
}

// WithBroadcastDelivery switches the relay to push every message to every
// live connection, relying on client-side filtering.
func (s *Service) WithBroadcastDelivery() *Service {
	s.broadcast = true
	return s
}

// Relay persists a message and then pushes it. A missing sender or text
// yields a ValidationFailure; on the fire-and-forget websocket channel
// the caller drops that error silently. If the receiver names a known
// user, exactly one message-type notification is produced for them.
func (s *Service) Relay(ctx context.Context, sender, text, receiver string) (message.Message, error) {
	if strings.TrimSpace(sender) == "" || strings.TrimSpace(text) == "" {
		return message.Message{}, errors.Validation("sender and text are required")
	}

	// Persist before any push: durability over delivery.
	msg, err := s.store.CreateMessage(ctx, message.Message{
		Sender:   sender,
		Receiver: receiver,
		Text:     text,
	})
	if err != nil {
		return message.Message{}, err
	}
	metrics.MessageRelayed()

	s.push(ctx, msg)

	if receiver != "" {
		if rec, err := s.users.GetUserByUsername(ctx, receiver); err == nil {
			_, nerr := s.notifier.Notify(ctx, rec.ID,
				"New Message",
				fmt.Sprintf("You received a new message from %s", sender),
				notification.TypeMessage, sender)
			if nerr != nil {
				s.log.WithError(nerr).Warn("message notification failed")
			}
		}
	}

	s.log.WithField("sender", sender).
		WithField("direct", msg.IsDirect()).
		Info("message relayed")
	return msg, nil
}

func (s *Service) push(ctx context.Context, msg message.Message) {
	if s.pub == nil {
		return
	}
	payload := realtime.MessagePayload{
		ID:        msg.ID,
		Text:      msg.Text,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Timestamp: msg.Timestamp,
	}

	// Public messages and legacy mode go to everyone.
	if s.broadcast || !msg.IsDirect() {
		s.pub.Broadcast(realtime.EventNewMessage, payload)
		return
	}

	for _, username := range []string{msg.Sender, msg.Receiver} {
		if u, err := s.users.GetUserByUsername(ctx, username); err == nil {
			s.pub.SendTo(u.ID, realtime.EventNewMessage, payload)
		}
	}
}

// History returns the conversation between two identities: every message
// whose sender/receiver pair matches in either direction, oldest first.
// Symmetric in its arguments.
func (s *Service) History(ctx context.Context, userA, userB string) ([]message.Message, error) {
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" {
		return nil, errors.Validation("both participants are required")
	}
	return s.store.ListConversation(ctx, userA, userB)
}
