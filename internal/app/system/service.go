// Package system provides the lifecycle contract shared by long-running
// components and a manager that starts and stops them together.
package system

import "context"

// Service is a long-running component with an explicit lifecycle.
// Start must not block; Stop must be safe to call after a failed Start.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service without doing anything. Useful as a
// placeholder while wiring and in tests.
type NoopService struct{ ServiceName string }

func (n NoopService) Name() string { return n.ServiceName }

func (NoopService) Start(context.Context) error { return nil }

func (NoopService) Stop(context.Context) error { return nil }
