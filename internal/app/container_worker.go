package app

import (
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/jobs"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/bidding"
	"service-dispatch/internal/service/trips"
	"service-dispatch/internal/transport/kafka"
)

var newTripsConsumer = kafka.NewConsumer

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(svc *bidding.Service, logger logx.Logger) *trips.Processor {
			return trips.NewProcessor(svc, logger)
		},
		provideTripsConsumer,
		func(cfg *config.Config, svc *bidding.Service, logger logx.Logger) *jobs.ExpiryJob {
			return jobs.NewExpiryJob(svc, cfg.Dispatch.ExpirySchedule, cfg.Dispatch.StaleAfter, logger)
		},
	)
}

// provideTripsConsumer returns a nil consumer when Kafka is not configured.
func provideTripsConsumer(cfg *config.Config, logger logx.Logger, p *trips.Processor) (*kafka.Consumer, error) {
	if !cfg.Kafka.Enabled() {
		return nil, nil
	}
	return newTripsConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TripsTopic, p.Handle)
}
