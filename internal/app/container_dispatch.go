package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"service-dispatch/internal/config"
	"service-dispatch/internal/dispatch"
	"service-dispatch/internal/fanout"
	"service-dispatch/internal/gateway/profiles"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/service/bidding"
	"service-dispatch/internal/transport/kafka"
)

var (
	newRedisClient    = profiles.NewRedisClient
	newEventPublisher = kafka.NewEventPublisher
)

func registerDispatch(container *dig.Container) error {
	return provideAll(container,
		func(s *dataStore) *dispatch.Machine { return dispatch.New(s.Deliveries, nil) },
		provideEventMirror,
		providePublisher,
		provideDirectory,
		provideService,
	)
}

type mirrorOut struct {
	dig.Out

	Mirror *kafka.EventPublisher
	Closer closer `group:"closers"`
}

// provideEventMirror connects the Kafka copy of the real-time channel. It is
// absent when no brokers are configured.
func provideEventMirror(cfg *config.Config, logger logx.Logger) (mirrorOut, error) {
	if !cfg.Kafka.Enabled() {
		return mirrorOut{}, nil
	}
	p, err := newEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	if err != nil {
		return mirrorOut{}, fmt.Errorf("kafka event mirror: %w", err)
	}
	logger.Info("kafka event mirror enabled", logx.String("topic", cfg.Kafka.EventsTopic))
	return mirrorOut{Mirror: p, Closer: closer{name: "kafka producer", fn: p.Close}}, nil
}

type publisherIn struct {
	dig.In

	Hub    *fanout.Hub `optional:"true"`
	Mirror *kafka.EventPublisher
}

func providePublisher(in publisherIn) bidding.Publisher {
	var m fanout.Multi
	if in.Hub != nil {
		m = append(m, in.Hub)
	}
	if in.Mirror != nil {
		m = append(m, in.Mirror)
	}
	return m
}

type directoryIn struct {
	dig.In

	Ctx     context.Context
	Cfg     *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"gateway_retries_total"`
}

type directoryOut struct {
	dig.Out

	Directory *profiles.Directory
	Closers   []closer `group:"closers,flatten"`
}

// provideDirectory chains the profile lookups: gRPC, then retries, then the
// Redis cache when one is reachable.
func provideDirectory(in directoryIn) (directoryOut, error) {
	pc := in.Cfg.Profiles
	if pc.Addr == "" {
		in.Logger.Info("profiles gateway disabled: summaries carry user ids only")
		return directoryOut{Directory: profiles.NewDirectory(nil)}, nil
	}

	conn, err := grpc.NewClient(pc.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return directoryOut{}, fmt.Errorf("profiles grpc client: %w", err)
	}
	out := directoryOut{Closers: []closer{{name: "profiles grpc", fn: conn.Close}}}

	retrying := profiles.NewRetryingGateway(profiles.NewGRPCGateway(conn), in.Logger, in.Retries, profiles.RetryConfig{
		MaxAttempts: pc.MaxAttempts,
		BaseDelay:   pc.BaseDelay,
		MaxDelay:    pc.MaxDelay,
	})

	if in.Cfg.Redis.Addr == "" {
		out.Directory = profiles.NewDirectory(retrying).WithTimeout(pc.Timeout)
		return out, nil
	}

	client, err := newRedisClient(in.Ctx, in.Cfg.Redis.Addr)
	if err != nil {
		in.Logger.Warn("profile cache disabled",
			logx.String("addr", in.Cfg.Redis.Addr),
			logx.Err(err),
		)
		out.Directory = profiles.NewDirectory(retrying).WithTimeout(pc.Timeout)
		return out, nil
	}
	out.Closers = append(out.Closers, closer{name: "redis", fn: client.Close})
	cached := profiles.NewCachedGateway(retrying, client, in.Cfg.Redis.ProfileTTL, in.Logger)
	out.Directory = profiles.NewDirectory(cached).WithTimeout(pc.Timeout)
	return out, nil
}

type serviceIn struct {
	dig.In

	Cfg       *config.Config
	Logger    logx.Logger
	Store     *dataStore
	Machine   *dispatch.Machine
	Publisher bidding.Publisher
	Directory *profiles.Directory
	Metrics   *metrics.Dispatch
}

func provideService(in serviceIn) *bidding.Service {
	return bidding.NewService(
		in.Store.Deliveries,
		in.Store.Bids,
		in.Machine,
		in.Publisher,
		in.Directory,
		in.Logger,
		bidding.Config{
			OperationTimeout: in.Cfg.Dispatch.OperationTimeout,
			Metrics:          in.Metrics,
		},
	)
}
