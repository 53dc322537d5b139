// Package scheduler runs named background jobs at a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler wraps a gocron scheduler that logs through slog.
type Scheduler struct {
	s gocron.Scheduler
}

// New creates a stopped scheduler in UTC.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(slog.Default()),
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.BeforeJobRuns(func(jobID uuid.UUID, jobName string) {
					slog.Debug("job started", "job_name", jobName, "job_id", jobID.String())
				}),
				gocron.AfterJobRuns(func(jobID uuid.UUID, jobName string) {
					slog.Debug("job finished", "job_name", jobName, "job_id", jobID.String())
				}),
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					slog.Error("error while running the job", "job_name", jobName, "job_id", jobID.String(), "error", err)
				}),
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					slog.Error("job panicked", "job_name", jobName, "job_id", jobID.String(), "recover_data", recoverData)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{s: s}, nil
}

// Every registers task to run every interval, starting immediately once the
// scheduler is started. A run that is still going when the next one is due
// delays it instead of overlapping.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, task func(ctx context.Context) error) error {
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return err
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.s.Start()
}

// Close stops the scheduler and waits for running jobs.
func (s *Scheduler) Close() error {
	return s.s.Shutdown()
}
