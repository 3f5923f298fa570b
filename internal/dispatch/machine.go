// Package dispatch holds the delivery lifecycle rules. Every transition runs in a
// single store transaction that locks the delivery row first.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// Machine applies legal transitions to deliveries and their bids.
type Machine struct {
	runner dispatchtx.Runner
	now    func() time.Time
}

// New creates a Machine. now defaults to time.Now.
func New(runner dispatchtx.Runner, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{runner: runner, now: now}
}

// PlaceBid records a PENDING bid and opens bidding on a PENDING delivery.
// The delivery row is held under a shared lock so concurrent placements proceed
// while an acceptance waits.
func (m *Machine) PlaceBid(
	ctx context.Context,
	deliveryID uuid.UUID,
	driverID string,
	amount decimal.Decimal,
) (*domain.Bid, *domain.Delivery, error) {
	if err := domain.ValidatePrice("bid amount", amount); err != nil {
		return nil, nil, err
	}
	if driverID == "" {
		return nil, nil, apperr.Invalidf("driver is required")
	}

	var (
		bid      *domain.Bid
		delivery *domain.Delivery
	)
	err := m.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForShare(ctx, deliveryID)
		if err != nil {
			return err
		}
		if !d.Status.Biddable() {
			return fmt.Errorf("%w: delivery %s is %s", apperr.ErrBiddingClosed, d.ID, d.Status)
		}

		now := m.now().UTC()
		if d.Status == domain.DeliveryPending {
			if err := tx.OpenBidding(ctx, d.ID, now); err != nil {
				return err
			}
			d.Status = domain.DeliveryBidding
			d.UpdatedAt = now
		}

		b := &domain.Bid{
			ID:         uuid.New(),
			DeliveryID: d.ID,
			DriverID:   driverID,
			Amount:     amount,
			Status:     domain.BidPending,
			CreatedAt:  now,
		}
		if err := tx.CreateBid(ctx, b); err != nil {
			return err
		}
		bid, delivery = b, d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return bid, delivery, nil
}

// AcceptBid makes bidID the single winner of its delivery. The bid, the delivery
// and every sibling bid change in one transaction under an exclusive row lock;
// the loser of a concurrent acceptance sees ACCEPTED and gets ErrNoLongerAvailable.
func (m *Machine) AcceptBid(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error) {
	var (
		bid      *domain.Bid
		delivery *domain.Delivery
	)
	err := m.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		b, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		d, err := tx.GetDeliveryForUpdate(ctx, b.DeliveryID)
		if err != nil {
			return err
		}
		if d.CustomerID != callerID {
			return fmt.Errorf("%w: caller does not own delivery %s", apperr.ErrUnauthorized, d.ID)
		}
		if !d.Status.Biddable() || b.Status != domain.BidPending {
			return fmt.Errorf("%w: delivery %s is %s", apperr.ErrNoLongerAvailable, d.ID, d.Status)
		}

		now := m.now().UTC()
		if err := tx.SetBidStatus(ctx, b.ID, domain.BidAccepted); err != nil {
			return err
		}
		if _, err := tx.BulkReject(ctx, d.ID, b.ID); err != nil {
			return err
		}
		driverID := b.DriverID
		if err := tx.UpdateStatus(ctx, d.ID, domain.DeliveryAccepted, &driverID, now); err != nil {
			return err
		}

		b.Status = domain.BidAccepted
		d.Status = domain.DeliveryAccepted
		d.DriverID = &driverID
		d.UpdatedAt = now
		bid, delivery = b, d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return bid, delivery, nil
}

// Start moves an ACCEPTED delivery to IN_PROGRESS on behalf of its driver or the system.
func (m *Machine) Start(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error) {
	return m.transition(ctx, deliveryID, domain.DeliveryInProgress, func(d *domain.Delivery) error {
		return authorizeDriver(d, actor)
	})
}

// Complete moves an IN_PROGRESS delivery to COMPLETED on behalf of its driver or the system.
func (m *Machine) Complete(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error) {
	return m.transition(ctx, deliveryID, domain.DeliveryCompleted, func(d *domain.Delivery) error {
		return authorizeDriver(d, actor)
	})
}

// Cancel moves a non-terminal delivery to CANCELLED on behalf of its customer or the system.
// Pending bids are left as they are.
func (m *Machine) Cancel(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error) {
	return m.transition(ctx, deliveryID, domain.DeliveryCancelled, func(d *domain.Delivery) error {
		if actor == domain.SystemActor || actor == d.CustomerID {
			return nil
		}
		return fmt.Errorf("%w: caller does not own delivery %s", apperr.ErrUnauthorized, d.ID)
	})
}

func (m *Machine) transition(
	ctx context.Context,
	deliveryID uuid.UUID,
	next domain.DeliveryStatus,
	authorize func(*domain.Delivery) error,
) (*domain.Delivery, error) {
	var out *domain.Delivery
	err := m.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err := authorize(d); err != nil {
			return err
		}
		if !d.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: delivery %s cannot move from %s to %s", apperr.ErrConflict, d.ID, d.Status, next)
		}

		driverID := d.DriverID
		if !next.HasDriver() {
			driverID = nil
		}
		now := m.now().UTC()
		if err := tx.UpdateStatus(ctx, d.ID, next, driverID, now); err != nil {
			return err
		}
		d.Status = next
		d.DriverID = driverID
		d.UpdatedAt = now
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func authorizeDriver(d *domain.Delivery, actor string) error {
	if actor == domain.SystemActor || (d.DriverID != nil && *d.DriverID == actor) {
		return nil
	}
	return fmt.Errorf("%w: caller is not the assigned driver of delivery %s", apperr.ErrUnauthorized, d.ID)
}
