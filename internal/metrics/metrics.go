package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewFanoutDroppedTotal returns a Prometheus counter for events dropped on a full subscriber buffer
func NewFanoutDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_dropped_total",
		Help: "Total number of real-time events dropped because a subscriber buffer was full",
	})
}

// Dispatch groups the bidding core counters.
type Dispatch struct {
	BidsPlaced      prometheus.Counter
	BidsAccepted    prometheus.Counter
	AcceptConflicts prometheus.Counter
	Cancelled       *prometheus.CounterVec
}

// NewDispatch builds unregistered bidding core counters.
func NewDispatch() *Dispatch {
	return &Dispatch{
		BidsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_bids_placed_total",
			Help: "Total number of bids recorded",
		}),
		BidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_bids_accepted_total",
			Help: "Total number of bids accepted",
		}),
		AcceptConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_accept_conflicts_total",
			Help: "Total number of accept attempts that lost to a concurrent acceptance",
		}),
		Cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_deliveries_cancelled_total",
			Help: "Total number of cancelled deliveries by origin",
		}, []string{"origin"}),
	}
}

// Collectors lists the counters for registration.
func (d *Dispatch) Collectors() []prometheus.Collector {
	return []prometheus.Collector{d.BidsPlaced, d.BidsAccepted, d.AcceptConflicts, d.Cancelled}
}
