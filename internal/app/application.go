// Package app wires the domain services together and manages their
// lifecycle.
package app

import (
	"context"
	"time"

	"github.com/flowstate/backend/internal/app/services/accounts"
	"github.com/flowstate/backend/internal/app/services/chat"
	"github.com/flowstate/backend/internal/app/services/events"
	"github.com/flowstate/backend/internal/app/services/focus"
	"github.com/flowstate/backend/internal/app/services/friends"
	"github.com/flowstate/backend/internal/app/services/habits"
	"github.com/flowstate/backend/internal/app/services/notifications"
	"github.com/flowstate/backend/internal/app/services/tasks"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/app/storage/memory"
	"github.com/flowstate/backend/internal/app/system"
	"github.com/flowstate/backend/internal/auth"
	"github.com/flowstate/backend/internal/realtime"
	"github.com/flowstate/backend/pkg/logger"
)

// Options configures the application. A nil Store defaults to the
// in-memory implementation.
type Options struct {
	Store      storage.Store
	Maintainer storage.Maintainer

	JWTSecret    string
	TokenTTL     time.Duration
	HabitCadence string

	// BroadcastChat restores the legacy fan-out where every chat
	// message and notification event reaches every connection.
	BroadcastChat bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager    *system.Manager
	log        *logger.Logger
	maintainer storage.Maintainer

	Hub           *realtime.Hub
	Tokens        *auth.TokenManager
	Accounts      *accounts.Service
	Tasks         *tasks.Service
	Habits        *habits.Service
	Friends       *friends.Service
	Events        *events.Service
	Focus         *focus.Service
	Notifications *notifications.Service
	Chat          *chat.Service
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Store == nil {
		opts.Store = memory.New()
	}

	manager := system.NewManager(log)
	hub := realtime.NewHub(log)
	tokens := auth.NewTokenManager(opts.JWTSecret, opts.TokenTTL)

	notifService := notifications.New(opts.Store, hub, log)
	acctService := accounts.New(opts.Store, opts.Store, tokens, log)
	taskService := tasks.New(opts.Store, hub, notifService, log)
	habitService := habits.New(opts.Store, log)
	friendService := friends.New(opts.Store, notifService, log)
	eventService := events.New(opts.Store, log)
	focusService := focus.New(opts.Store, log)
	chatService := chat.New(opts.Store, opts.Store, hub, notifService, log)
	if opts.BroadcastChat {
		chatService = chatService.WithBroadcastDelivery()
	}

	// Inbound websocket chat frames feed the same relay path as the
	// REST endpoint; malformed frames were already dropped by the hub.
	hub.OnChatMessage(func(sender, text, receiver string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := chatService.Relay(ctx, sender, text, receiver); err != nil {
			log.WithError(err).Debug("websocket chat frame dropped")
		}
	})

	manager.Register(habits.NewScheduler(habitService, opts.HabitCadence, log))

	return &Application{
		manager:       manager,
		log:           log,
		maintainer:    opts.Maintainer,
		Hub:           hub,
		Tokens:        tokens,
		Accounts:      acctService,
		Tasks:         taskService,
		Habits:        habitService,
		Friends:       friendService,
		Events:        eventService,
		Focus:         focusService,
		Notifications: notifService,
		Chat:          chatService,
	}, nil
}

// Maintainer returns the storage maintainer, nil for stores that need
// no upkeep.
func (a *Application) Maintainer() storage.Maintainer { return a.maintainer }

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) {
	a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
