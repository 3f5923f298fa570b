package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/config"
	"service-dispatch/internal/fanout"
	"service-dispatch/internal/gateway/profiles"
	"service-dispatch/internal/http/handlers"
	obs "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/bidding"
)

type hubIn struct {
	dig.In

	Cfg     *config.Config
	Logger  logx.Logger
	Dropped prometheus.Counter `name:"fanout_dropped_total"`
}

type hubOut struct {
	dig.Out

	Hub    *fanout.Hub
	Closer closer `group:"closers"`
}

func registerFanout(container *dig.Container) error {
	return provideAll(container, func(in hubIn) hubOut {
		hub := fanout.NewHub(in.Cfg.Fanout.SubscriberBuffer, in.Logger, in.Dropped)
		return hubOut{Hub: hub, Closer: closer{name: "fanout hub", fn: func() error {
			hub.Close()
			return nil
		}}}
	})
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		handlers.New,
		func(logger logx.Logger, svc *bidding.Service) *handlers.DeliveryHandler {
			return handlers.NewDeliveryHandler(logger, svc)
		},
		func(logger logx.Logger, svc *bidding.Service, dir *profiles.Directory) *handlers.BidHandler {
			return handlers.NewBidHandler(logger, svc, dir)
		},
		func(logger logx.Logger, hub *fanout.Hub) *handlers.EventsHandler {
			return handlers.NewEventsHandler(logger, hub)
		},
		newVerifier,
		newRateLimiter,
		newRateLimitMiddleware,
		provideRouter,
		serverProvider,
	)
}

func newVerifier(cfg *config.Config) (*auth.Verifier, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), nil
}

type routerIn struct {
	dig.In

	Logger      logx.Logger
	Verifier    *auth.Verifier
	HTTPMetrics *obs.HTTPMetrics
	RateLimit   *ratelimit.Middleware
	Gatherer    prometheus.Gatherer

	Base       *handlers.Handlers
	Deliveries *handlers.DeliveryHandler
	Bids       *handlers.BidHandler
	Events     *handlers.EventsHandler
}

func provideRouter(in routerIn) http.Handler {
	return router.New(
		router.Handlers{
			Base:       in.Base,
			Deliveries: in.Deliveries,
			Bids:       in.Bids,
			Events:     in.Events,
		},
		router.Options{
			Logger:      in.Logger,
			Verifier:    in.Verifier,
			HTTPMetrics: in.HTTPMetrics,
			RateLimit:   in.RateLimit.Handler(),
			Metrics:     promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{}),
		},
	)
}
