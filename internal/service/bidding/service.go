package bidding

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/fanout"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
)

const defaultOperationTimeout = 3 * time.Second

// Config tunes a Service.
type Config struct {
	OperationTimeout time.Duration
	Metrics          *metrics.Dispatch
	Now              func() time.Time
}

// Service is the entry point of the bidding core: it persists through the store
// and state machine, then notifies subscribers. Notifications never roll back state.
// Writes that notify run in a per-delivery section that also covers the publish,
// so one delivery's events leave in the order they were committed.
type Service struct {
	deliveries       DeliveryStore
	bids             BidLedger
	machine          StateMachine
	publisher        Publisher
	directory        Directory
	order            *deliveryOrder
	logger           logx.Logger
	metrics          *metrics.Dispatch
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates a new bidding Service. directory may be nil.
func NewService(
	deliveries DeliveryStore,
	bids BidLedger,
	machine StateMachine,
	publisher Publisher,
	directory Directory,
	logger logx.Logger,
	cfg Config,
) *Service {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewDispatch()
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		deliveries:       deliveries,
		bids:             bids,
		machine:          machine,
		publisher:        publisher,
		directory:        directory,
		order:            newDeliveryOrder(),
		logger:           logger,
		metrics:          cfg.Metrics,
		operationTimeout: cfg.OperationTimeout,
		now:              func() time.Time { return cfg.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// writeContext detaches a write from the caller's cancellation so an abandoned
// request still commits or rolls back as a whole.
func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.operationTimeout)
}

// CreateDelivery validates and stores a PENDING delivery, then broadcasts it to drivers.
func (s *Service) CreateDelivery(ctx context.Context, customerID string, draft domain.DeliveryDraft) (*domain.Delivery, error) {
	d, err := domain.NewDelivery(draft, customerID, s.now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	release := s.order.lock(d.ID)
	defer release()

	if err := s.deliveries.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("delivery created",
		logx.String("event", "delivery_created"),
		logx.Stringer("delivery_id", d.ID),
		logx.String("customer_id", d.CustomerID),
		logx.String("vehicle_type", string(d.VehicleType)),
		logx.Stringer("offer_price", d.OfferPrice),
	)
	s.publish(ctx, fanout.NewDeliveryRequest(d, s.now()))
	return d, nil
}

// PlaceBid records driver's bid and notifies the customer and delivery watchers.
// The returned bid carries the driver summary.
func (s *Service) PlaceBid(
	ctx context.Context,
	driver domain.DriverSummary,
	deliveryID uuid.UUID,
	amount decimal.Decimal,
) (*domain.Bid, error) {
	if err := domain.ValidatePrice("bid amount", amount); err != nil {
		return nil, err
	}
	if driver.ID == "" {
		return nil, apperr.Invalidf("driver is required")
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	release := s.order.lock(deliveryID)
	defer release()

	bid, d, err := s.machine.PlaceBid(ctx, deliveryID, driver.ID, amount)
	if err != nil {
		return nil, err
	}
	summary := driver
	bid.Driver = &summary
	s.metrics.BidsPlaced.Inc()

	s.logger.Info("bid placed",
		logx.String("event", "bid_placed"),
		logx.Stringer("bid_id", bid.ID),
		logx.Stringer("delivery_id", d.ID),
		logx.String("driver_id", driver.ID),
		logx.Stringer("amount", bid.Amount),
	)
	s.publish(ctx, fanout.NewBid(bid, d, bid.Driver, s.now()))
	return bid, nil
}

// AcceptBid makes bidID the winner on behalf of the delivery's customer and
// notifies the winning driver only.
func (s *Service) AcceptBid(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error) {
	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	target, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	release := s.order.lock(target.DeliveryID)
	defer release()

	bid, d, err := s.machine.AcceptBid(ctx, bidID, callerID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoLongerAvailable) {
			s.metrics.AcceptConflicts.Inc()
		}
		return nil, nil, err
	}
	s.metrics.BidsAccepted.Inc()

	s.logger.Info("bid accepted",
		logx.String("event", "bid_accepted"),
		logx.Stringer("bid_id", bid.ID),
		logx.Stringer("delivery_id", d.ID),
		logx.String("driver_id", bid.DriverID),
		logx.Stringer("amount", bid.Amount),
	)
	s.publish(ctx, fanout.BidAccepted(bid, d, s.customer(ctx, d.CustomerID), s.now()))
	return bid, d, nil
}

// ListBids returns a delivery's bids, lowest amount first.
func (s *Service) ListBids(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.deliveries.Get(ctx, deliveryID); err != nil {
		return nil, err
	}
	return s.bids.ListForDelivery(ctx, deliveryID)
}

// GetDelivery returns a delivery by its ID.
func (s *Service) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.deliveries.Get(ctx, id)
}

// ListAvailable returns deliveries still waiting for a first bid, newest first.
func (s *Service) ListAvailable(ctx context.Context) ([]domain.Delivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.deliveries.ListAvailable(ctx)
}

// ListByCustomer returns a customer's deliveries, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.deliveries.ListByCustomer(ctx, customerID)
}

// StartDelivery marks an accepted delivery as picked up.
func (s *Service) StartDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	return s.lifecycle(ctx, "delivery started", id, actor, s.machine.Start)
}

// CompleteDelivery marks an in-progress delivery as delivered.
func (s *Service) CompleteDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	return s.lifecycle(ctx, "delivery completed", id, actor, s.machine.Complete)
}

// CancelDelivery cancels a delivery that has not finished.
func (s *Service) CancelDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	d, err := s.lifecycle(ctx, "delivery cancelled", id, actor, s.machine.Cancel)
	if err != nil {
		return nil, err
	}
	origin := "customer"
	if actor == domain.SystemActor {
		origin = "system"
	}
	s.metrics.Cancelled.WithLabelValues(origin).Inc()
	return d, nil
}

// ExpireStale cancels open deliveries older than maxAge and returns how many were cancelled.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	now := s.now()
	ids, err := s.deliveries.CancelStale(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.metrics.Cancelled.WithLabelValues("expired").Add(float64(len(ids)))
		s.logger.Info("stale deliveries cancelled",
			logx.String("event", "deliveries_expired"),
			logx.Int("count", len(ids)),
			logx.Duration("max_age", maxAge),
		)
	}
	return len(ids), nil
}

func (s *Service) lifecycle(
	ctx context.Context,
	msg string,
	id uuid.UUID,
	actor string,
	apply func(context.Context, uuid.UUID, string) (*domain.Delivery, error),
) (*domain.Delivery, error) {
	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	d, err := apply(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info(msg,
		logx.Stringer("delivery_id", d.ID),
		logx.String("status", string(d.Status)),
		logx.String("actor", actor),
	)
	return d, nil
}

func (s *Service) customer(ctx context.Context, id string) domain.Party {
	if s.directory == nil {
		return domain.Party{ID: id}
	}
	p, err := s.directory.Customer(ctx, id)
	if err != nil {
		s.logger.Warn("customer lookup failed",
			logx.String("customer_id", id),
			logx.Err(err),
		)
		return domain.Party{ID: id}
	}
	if p.ID == "" {
		p.ID = id
	}
	return p
}

func (s *Service) publish(ctx context.Context, e fanout.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("fan-out publish failed",
			logx.String("type", string(e.Type)),
			logx.Stringer("delivery_id", e.DeliveryID),
			logx.Err(err),
		)
	}
}
