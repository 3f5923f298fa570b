package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/http/handlers"
	obs "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/logx"
)

const defaultRequestTimeout = 5 * time.Second

// Handlers groups the endpoint handlers the router mounts.
type Handlers struct {
	Base       *handlers.Handlers
	Deliveries *handlers.DeliveryHandler
	Bids       *handlers.BidHandler
	Events     *handlers.EventsHandler
}

// Options configures cross-cutting middleware.
type Options struct {
	Logger         logx.Logger
	Verifier       *auth.Verifier
	HTTPMetrics    *obs.HTTPMetrics
	RateLimit      func(http.Handler) http.Handler
	Metrics        http.Handler
	RequestTimeout time.Duration
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(h Handlers, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logx.Nop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.Observability(opts.Logger, opts.HTTPMetrics))
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.Base.HealthcheckHead))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.NotFound(h.Base.NotFound)
	r.MethodNotAllowed(h.Base.MethodNotAllowed)

	customer := auth.RequireRole(auth.RoleCustomer)
	driver := auth.RequireRole(auth.RoleDriver)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(opts.Verifier, opts.Logger))
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}

		// Long-lived; no request timeout.
		r.Get("/ws", h.Events.Subscribe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))

			r.Route("/deliveries", func(r chi.Router) {
				r.With(customer).Post("/", h.Deliveries.Create)
				r.Get("/available", h.Deliveries.Available)
				r.With(customer).Get("/mine", h.Deliveries.Mine)
				r.Get("/{deliveryID}", h.Deliveries.Get)
				r.Get("/{deliveryID}/bids", h.Deliveries.Bids)
				r.With(customer).Post("/{deliveryID}/cancel", h.Deliveries.Cancel)
				r.With(driver).Post("/{deliveryID}/start", h.Deliveries.Start)
				r.With(driver).Post("/{deliveryID}/complete", h.Deliveries.Complete)
			})

			r.With(driver).Post("/bids", h.Bids.Place)
			r.With(customer).Post("/bids/{bidID}/accept", h.Bids.Accept)
		})
	})

	return r
}
