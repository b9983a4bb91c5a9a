package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"networth/internal/log"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job
// are skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *log.Logger
}

func NewScheduler(ctx context.Context, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers job on a standard five-field schedule or a descriptor
// such as "@every 1h".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.logger.Debug("Running job", "job", job.Name())
		if err := job.Run(s.ctx); err != nil {
			s.logger.Error("Job failed", "job", job.Name(), log.FieldError, err.Error())
			return
		}
		s.logger.Debug("Job completed", "job", job.Name())
	}))

	if _, err := s.cron.AddJob(schedule, wrapped); err != nil {
		return err
	}
	s.logger.Info("Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// ImportJob adapts an ImportWorker to the scheduler.
type ImportJob struct {
	Worker *ImportWorker
}

func (j ImportJob) Name() string { return "ledger-import" }

func (j ImportJob) Run(ctx context.Context) error {
	_, err := j.Worker.Import(ctx, SourceCron)
	return err
}
