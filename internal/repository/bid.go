package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// BidRepo represents the bid ledger.
type BidRepo struct {
	db *pgxpool.Pool
}

// NewBidRepo creates a new BidRepo.
func NewBidRepo(db *pgxpool.Pool) *BidRepo {
	return &BidRepo{db: db}
}

// Create records a bid.
func (r *BidRepo) Create(ctx context.Context, b *domain.Bid) error {
	return createBid(ctx, r.db, b)
}

// Get returns a bid by its ID.
func (r *BidRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	return getBid(ctx, r.db, id)
}

// ListForDelivery returns the bids of a delivery ordered by amount, then by arrival.
func (r *BidRepo) ListForDelivery(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+bidColumns+`
        FROM bids
        WHERE delivery_id = $1
        ORDER BY amount ASC, created_at ASC, seq ASC
    `, deliveryID)
	if err != nil {
		return nil, wrap("list bids", err)
	}
	out, err := collectBids(rows)
	return out, wrap("list bids", err)
}

// BulkReject rejects every PENDING bid of the delivery except exceptBidID.
func (r *BidRepo) BulkReject(ctx context.Context, deliveryID, exceptBidID uuid.UUID) (int64, error) {
	return bulkReject(ctx, r.db, deliveryID, exceptBidID)
}

func createBid(ctx context.Context, q querier, b *domain.Bid) error {
	_, err := q.Exec(ctx, `
        INSERT INTO bids (`+bidColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, b.ID, b.DeliveryID, b.DriverID, numeric(b.Amount), string(b.Status), b.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("create bid %s: %w", b.ID, apperr.ErrConflict)
		}
		return wrap("create bid", err)
	}
	return nil
}

func getBid(ctx context.Context, q querier, id uuid.UUID) (*domain.Bid, error) {
	b, err := scanBid(q.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrBidNotFound, id)
		}
		return nil, wrap(fmt.Sprintf("get bid %s", id), err)
	}
	return b, nil
}

func bulkReject(ctx context.Context, q querier, deliveryID, exceptBidID uuid.UUID) (int64, error) {
	ct, err := q.Exec(ctx, `
        UPDATE bids
        SET status = $3
        WHERE delivery_id = $1 AND id <> $2 AND status = $4
    `, deliveryID, exceptBidID, string(domain.BidRejected), string(domain.BidPending))
	if err != nil {
		return 0, wrap("reject sibling bids", err)
	}
	return ct.RowsAffected(), nil
}
