package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// DeliveryRepo is the in-memory delivery store.
type DeliveryRepo struct {
	s *Store
}

// NewDeliveryRepo creates a DeliveryRepo over s.
func NewDeliveryRepo(s *Store) *DeliveryRepo {
	return &DeliveryRepo{s: s}
}

// Create inserts a new delivery.
func (r *DeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.deliveries[d.ID]; ok {
		return fmt.Errorf("create delivery %s: %w", d.ID, apperr.ErrConflict)
	}
	r.s.deliveries[d.ID] = *cloneDelivery(*d)
	return nil
}

// Get returns a delivery by its ID.
func (r *DeliveryRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, id)
	}
	return cloneDelivery(d), nil
}

// ListAvailable returns PENDING deliveries, newest first.
func (r *DeliveryRepo) ListAvailable(ctx context.Context) ([]domain.Delivery, error) {
	return r.list(ctx, func(d domain.Delivery) bool { return d.Status == domain.DeliveryPending })
}

// ListByCustomer returns a customer's deliveries, newest first.
func (r *DeliveryRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error) {
	return r.list(ctx, func(d domain.Delivery) bool { return d.CustomerID == customerID })
}

func (r *DeliveryRepo) list(ctx context.Context, keep func(domain.Delivery) bool) ([]domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := make([]domain.Delivery, 0)
	for _, d := range r.s.deliveries {
		if keep(d) {
			out = append(out, *cloneDelivery(d))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// UpdateStatus writes status and driver of a delivery outside a transaction.
func (r *DeliveryRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DeliveryStatus,
	driverID *string,
	at time.Time,
) error {
	return r.WithTx(ctx, func(tx dispatchtx.Repository) error {
		if _, err := tx.GetDeliveryForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, id, status, driverID, at)
	})
}

// CancelStale cancels open deliveries created before the cutoff, skipping rows
// currently locked by a transaction.
func (r *DeliveryRepo) CancelStale(ctx context.Context, before, at time.Time) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]uuid.UUID, 0)
	for id, d := range r.s.deliveries {
		if !d.Status.Biddable() || !d.CreatedAt.Before(before) {
			continue
		}
		row := r.s.rowLock(id)
		if !row.TryLock() {
			continue
		}
		d.Status = domain.DeliveryCancelled
		d.DriverID = nil
		d.UpdatedAt = at
		r.s.deliveries[id] = d
		row.Unlock()
		ids = append(ids, id)
	}
	return ids, nil
}

// WithTx runs fn in a transaction. Row locks taken through tx are held until fn
// returns; buffered writes are applied atomically only when fn succeeds.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxRepo(r.s)
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}
