package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"service-dispatch/internal/logx"
)

// Expirer cancels open deliveries older than maxAge.
type Expirer interface {
	ExpireStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// ExpiryJob periodically cancels delivery requests nobody accepted in time.
type ExpiryJob struct {
	expirer  Expirer
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
	logger   logx.Logger
}

// NewExpiryJob creates the job. schedule is a standard cron spec or descriptor such as "@every 1m".
func NewExpiryJob(expirer Expirer, schedule string, maxAge time.Duration, logger logx.Logger) *ExpiryJob {
	if logger == nil {
		logger = logx.Nop()
	}
	return &ExpiryJob{
		expirer:  expirer,
		schedule: schedule,
		maxAge:   maxAge,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With(logx.String("component", "expiry_job")),
	}
}

// Start schedules the job. It does not block.
func (j *ExpiryJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule expiry job %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("expiry job started",
		logx.String("schedule", j.schedule),
		logx.Duration("max_age", j.maxAge),
	)
	return nil
}

// RunOnce performs a single expiry pass.
func (j *ExpiryJob) RunOnce(ctx context.Context) {
	n, err := j.expirer.ExpireStale(ctx, j.maxAge)
	if err != nil {
		j.logger.Error("expiry pass failed", logx.Err(err))
		return
	}
	if n > 0 {
		j.logger.Debug("expiry pass finished", logx.Int("cancelled", n))
	}
}

// Stop stops scheduling and waits for a running pass to finish or ctx to end.
func (j *ExpiryJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
	j.logger.Info("expiry job stopped")
}
