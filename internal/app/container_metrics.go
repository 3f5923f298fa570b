package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	obs "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/metrics"
)

type registryOut struct {
	dig.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// provideRegistry creates a process-local registry so that containers built in
// tests never collide on the global one.
func provideRegistry() registryOut {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registryOut{Registerer: reg, Gatherer: reg}
}

type metricsOut struct {
	dig.Out

	Dispatch       *metrics.Dispatch
	HTTP           *obs.HTTPMetrics
	RateLimited    prometheus.Counter `name:"rate_limit_exceeded_total"`
	GatewayRetries prometheus.Counter `name:"gateway_retries_total"`
	FanoutDropped  prometheus.Counter `name:"fanout_dropped_total"`
}

func provideMetrics(reg prometheus.Registerer) (metricsOut, error) {
	out := metricsOut{
		Dispatch:       metrics.NewDispatch(),
		HTTP:           obs.NewHTTPMetrics(),
		RateLimited:    metrics.NewRateLimitExceededTotal(),
		GatewayRetries: metrics.NewGatewayRetriesTotal(),
		FanoutDropped:  metrics.NewFanoutDroppedTotal(),
	}

	all := append(out.Dispatch.Collectors(), out.HTTP.Collectors()...)
	all = append(all, out.RateLimited, out.GatewayRetries, out.FanoutDropped)
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return metricsOut{}, fmt.Errorf("register metrics: %w", err)
		}
	}
	return out, nil
}
