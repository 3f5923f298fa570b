package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/dig"

	"service-dispatch/internal/jobs"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/transport/kafka"
)

const jobStopTimeout = 10 * time.Second

// WorkerRunner runs the trip event consumer and the expiry job
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

type workerIn struct {
	dig.In

	Ctx      context.Context
	Logger   logx.Logger
	Consumer *kafka.Consumer
	Job      *jobs.ExpiryJob
	Closers  []closer `group:"closers"`
}

func workerRun(in workerIn) error {
	defer closeWorker(in.Consumer, in.Closers, in.Logger)

	if err := in.Job.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), jobStopTimeout)
		defer cancel()
		in.Job.Stop(stopCtx)
	}()

	in.Logger.Info("service-dispatch-worker started", logx.Bool("kafka", in.Consumer != nil))
	if in.Consumer == nil {
		in.Logger.Warn("kafka disabled: worker runs the expiry job only")
		<-in.Ctx.Done()
		return in.Ctx.Err()
	}
	return in.Consumer.Run(in.Ctx)
}

func closeWorker(consumer *kafka.Consumer, closers []closer, logger logx.Logger) {
	if err := consumer.Close(); err != nil {
		logger.Error("kafka close error", logx.Err(err))
	}
	_ = closeResources(closers, logger)
}
