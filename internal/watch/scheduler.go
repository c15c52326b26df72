package watch

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// Scheduler wraps a gocron scheduler running one periodic task.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler schedules task on the cron expression expr (five fields).
func NewScheduler(expr string, task func()) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName("content-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid sync schedule").
			WithContext("schedule", expr).UserAction().Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running the schedule.
func (s *Scheduler) Start() {
	slog.Info("Starting sync scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running task.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping sync scheduler")
	return s.scheduler.Shutdown()
}
