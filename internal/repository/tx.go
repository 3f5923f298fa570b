package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// TxRepo represents transaction repository.
type TxRepo struct {
	tx pgx.Tx
}

// GetDeliveryForShare reads a delivery under FOR KEY SHARE: concurrent bid
// placements proceed, an acceptance (FOR UPDATE) waits.
func (r *TxRepo) GetDeliveryForShare(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	return getDelivery(ctx, r.tx, id, "FOR KEY SHARE")
}

// GetDeliveryForUpdate reads a delivery under FOR UPDATE.
func (r *TxRepo) GetDeliveryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	return getDelivery(ctx, r.tx, id, "FOR UPDATE")
}

// OpenBidding moves a PENDING delivery to BIDDING.
func (r *TxRepo) OpenBidding(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET status = $2, updated_at = $3
        WHERE id = $1 AND status = $4
    `, id, string(domain.DeliveryBidding), at, string(domain.DeliveryPending))
	return wrap(fmt.Sprintf("open bidding on %s", id), err)
}

// UpdateStatus writes status and driver of a delivery.
func (r *TxRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DeliveryStatus,
	driverID *string,
	at time.Time,
) error {
	return updateStatus(ctx, r.tx, id, status, driverID, at)
}

// GetBid returns a bid by its ID.
func (r *TxRepo) GetBid(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	return getBid(ctx, r.tx, id)
}

// CreateBid records a bid.
func (r *TxRepo) CreateBid(ctx context.Context, b *domain.Bid) error {
	return createBid(ctx, r.tx, b)
}

// SetBidStatus updates a single bid.
func (r *TxRepo) SetBidStatus(ctx context.Context, id uuid.UUID, status domain.BidStatus) error {
	ct, err := r.tx.Exec(ctx, `UPDATE bids SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("set bid %s status: %w", id, apperr.ErrNoLongerAvailable)
		}
		return wrap(fmt.Sprintf("set bid %s status", id), err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", apperr.ErrBidNotFound, id)
	}
	return nil
}

// BulkReject rejects every PENDING sibling of exceptBidID.
func (r *TxRepo) BulkReject(ctx context.Context, deliveryID, exceptBidID uuid.UUID) (int64, error) {
	return bulkReject(ctx, r.tx, deliveryID, exceptBidID)
}
