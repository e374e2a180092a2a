package system

import (
	"context"
	"fmt"

	"github.com/flowstate/backend/pkg/logger"
)

// Manager starts registered services in registration order and stops
// them in reverse.
type Manager struct {
	services []Service
	started  int
	log      *logger.Logger
}

// NewManager constructs an empty manager.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("system")
	}
	return &Manager{log: log}
}

// Register adds a service. Registration after Start is not supported.
func (m *Manager) Register(s Service) {
	m.services = append(m.services, s)
}

// Start brings up every registered service. On the first failure it
// stops the services already started and returns the error.
func (m *Manager) Start(ctx context.Context) error {
	for i, s := range m.services {
		m.log.WithField("service", s.Name()).Info("starting service")
		if err := s.Start(ctx); err != nil {
			m.started = i
			m.stopStarted(ctx)
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
	}
	m.started = len(m.services)
	return nil
}

// Stop shuts down started services in reverse order. Errors are logged
// and the shutdown continues; the first error is returned.
func (m *Manager) Stop(ctx context.Context) error {
	return m.stopStarted(ctx)
}

func (m *Manager) stopStarted(ctx context.Context) error {
	var first error
	for i := m.started - 1; i >= 0; i-- {
		s := m.services[i]
		m.log.WithField("service", s.Name()).Info("stopping service")
		if err := s.Stop(ctx); err != nil {
			m.log.WithError(err).WithField("service", s.Name()).Warn("service stop failed")
			if first == nil {
				first = fmt.Errorf("stop %s: %w", s.Name(), err)
			}
		}
	}
	m.started = 0
	return first
}
