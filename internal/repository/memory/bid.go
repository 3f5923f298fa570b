package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// BidRepo is the in-memory bid ledger.
type BidRepo struct {
	s *Store
}

// NewBidRepo creates a BidRepo over s.
func NewBidRepo(s *Store) *BidRepo {
	return &BidRepo{s: s}
}

// Create records a bid.
func (r *BidRepo) Create(ctx context.Context, b *domain.Bid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkNewBid(b); err != nil {
		return err
	}
	r.s.insertBid(*b)
	return nil
}

// Get returns a bid by its ID.
func (r *BidRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.getBid(id)
}

// ListForDelivery returns the bids of a delivery ordered by amount, then by arrival.
func (r *BidRepo) ListForDelivery(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedBids(deliveryID), nil
}

// BulkReject rejects every PENDING bid of the delivery except exceptBidID.
func (r *BidRepo) BulkReject(ctx context.Context, deliveryID, exceptBidID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.pendingSiblings(deliveryID, exceptBidID)
	for _, id := range ids {
		r.s.bids[id].bid.Status = domain.BidRejected
	}
	return int64(len(ids)), nil
}

// Caller holds s.mu.
func (s *Store) checkNewBid(b *domain.Bid) error {
	if _, ok := s.bids[b.ID]; ok {
		return fmt.Errorf("create bid %s: %w", b.ID, apperr.ErrConflict)
	}
	if _, ok := s.deliveries[b.DeliveryID]; !ok {
		return fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, b.DeliveryID)
	}
	return nil
}

// Caller holds s.mu for writing.
func (s *Store) insertBid(b domain.Bid) {
	s.seq++
	b.Driver = nil
	s.bids[b.ID] = &bidRow{bid: b, seq: s.seq}
	s.byDelivery[b.DeliveryID] = append(s.byDelivery[b.DeliveryID], b.ID)
}

// Caller holds s.mu.
func (s *Store) getBid(id uuid.UUID) (*domain.Bid, error) {
	row, ok := s.bids[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBidNotFound, id)
	}
	b := row.bid
	return &b, nil
}

// Caller holds s.mu.
func (s *Store) pendingSiblings(deliveryID, exceptBidID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0)
	for _, id := range s.byDelivery[deliveryID] {
		if id != exceptBidID && s.bids[id].bid.Status == domain.BidPending {
			out = append(out, id)
		}
	}
	return out
}
