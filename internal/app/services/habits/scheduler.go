package habits

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowstate/backend/pkg/logger"
)

// DefaultCadence fires at the start of the week: Monday 00:00 UTC.
const DefaultCadence = "0 0 * * 1"

// Scheduler runs the weekly rollover on a cron cadence. It satisfies
// the system service lifecycle; a failing sweep is logged and the next
// tick proceeds normally.
type Scheduler struct {
	svc  *Service
	spec string
	cron *cron.Cron
	log  *logger.Logger
}

// NewScheduler builds a scheduler for svc. An empty spec selects
// DefaultCadence. The cron runs in UTC regardless of host timezone.
func NewScheduler(svc *Service, spec string, log *logger.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultCadence
	}
	if log == nil {
		log = logger.NewDefault("habit-scheduler")
	}
	return &Scheduler{
		svc:  svc,
		spec: spec,
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log,
	}
}

func (s *Scheduler) Name() string { return "habit-scheduler" }

// Start registers the cadence and begins ticking. An invalid spec is
// returned as an error rather than panicking at tick time.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("cadence", s.spec).Info("habit scheduler started")
	return nil
}

// Stop halts the cron and waits for an in-flight sweep to finish, up to
// the context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.svc.Rollover(ctx); err != nil {
		s.log.WithError(err).Error("weekly habit rollover failed")
	}
}
