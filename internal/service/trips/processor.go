package trips

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// Processor applies trip events to deliveries.
//
// Events that can never succeed (unknown delivery, illegal transition, wrong
// driver) are logged and acknowledged. Any other error is returned so the
// message is redelivered.
type Processor struct {
	lifecycle Lifecycle
	logger    logx.Logger
	factory   *actionFactory
}

// NewProcessor creates a new trips Processor.
func NewProcessor(lifecycle Lifecycle, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		lifecycle: lifecycle,
		logger:    logger.With(logx.String("component", "trips_processor")),
	}
	p.factory = newActionFactory(p.onStarted, p.onCompleted, p.onCancelled)
	return p
}

// Handle processes a single trip Event.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Status)
	if !ok {
		p.logger.Debug("trip event ignored", logx.String("status", e.Status))
		return nil
	}
	id, err := uuid.Parse(e.DeliveryID)
	if err != nil {
		p.logger.Warn("trip event skipped: bad delivery_id", logx.String("delivery_id", e.DeliveryID))
		return nil
	}
	return p.settle(e, fn(ctx, id, e))
}

// A driver-reported start or completion is checked against the assigned driver.
func (p *Processor) onStarted(ctx context.Context, id uuid.UUID, e Event) error {
	_, err := p.lifecycle.StartDelivery(ctx, id, actorOf(e))
	return err
}

func (p *Processor) onCompleted(ctx context.Context, id uuid.UUID, e Event) error {
	_, err := p.lifecycle.CompleteDelivery(ctx, id, actorOf(e))
	return err
}

func (p *Processor) onCancelled(ctx context.Context, id uuid.UUID, _ Event) error {
	_, err := p.lifecycle.CancelDelivery(ctx, id, domain.SystemActor)
	return err
}

func (p *Processor) settle(e Event, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrUnauthorized),
		errors.Is(err, apperr.ErrInvalid):
		p.logger.Warn("trip event skipped",
			logx.String("delivery_id", e.DeliveryID),
			logx.String("status", e.Status),
			logx.Err(err),
		)
		return nil
	default:
		return err
	}
}

func actorOf(e Event) string {
	if e.DriverID == "" {
		return domain.SystemActor
	}
	return e.DriverID
}
