package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

var errLockUpgrade = errors.New("memory store: shared row lock cannot be upgraded")

type lockMode int

const (
	lockShared lockMode = iota + 1
	lockExclusive
)

type heldLock struct {
	id   uuid.UUID
	mode lockMode
	l    *sync.RWMutex
}

// txRepo buffers writes until commit so other readers never observe a partial transaction.
type txRepo struct {
	s     *Store
	held  []heldLock
	modes map[uuid.UUID]lockMode

	deliveries map[uuid.UUID]domain.Delivery
	newBids    []domain.Bid
	bidStatus  map[uuid.UUID]domain.BidStatus
}

func newTxRepo(s *Store) *txRepo {
	return &txRepo{
		s:          s,
		modes:      make(map[uuid.UUID]lockMode),
		deliveries: make(map[uuid.UUID]domain.Delivery),
		bidStatus:  make(map[uuid.UUID]domain.BidStatus),
	}
}

// GetDeliveryForShare reads a delivery under a shared row lock.
func (t *txRepo) GetDeliveryForShare(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	if err := t.lock(ctx, id, lockShared); err != nil {
		return nil, err
	}
	return t.delivery(id)
}

// GetDeliveryForUpdate reads a delivery under an exclusive row lock.
func (t *txRepo) GetDeliveryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	if err := t.lock(ctx, id, lockExclusive); err != nil {
		return nil, err
	}
	return t.delivery(id)
}

// OpenBidding moves a PENDING delivery to BIDDING.
func (t *txRepo) OpenBidding(_ context.Context, id uuid.UUID, at time.Time) error {
	d, err := t.delivery(id)
	if err != nil {
		return err
	}
	if d.Status != domain.DeliveryPending {
		return nil
	}
	d.Status = domain.DeliveryBidding
	d.UpdatedAt = at
	t.deliveries[id] = *d
	return nil
}

// UpdateStatus writes status and driver of a delivery.
func (t *txRepo) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.DeliveryStatus,
	driverID *string,
	at time.Time,
) error {
	d, err := t.delivery(id)
	if err != nil {
		return err
	}
	d.Status = status
	d.DriverID = driverID
	d.UpdatedAt = at
	t.deliveries[id] = *d
	return nil
}

// GetBid returns a bid by its ID.
func (t *txRepo) GetBid(_ context.Context, id uuid.UUID) (*domain.Bid, error) {
	for _, b := range t.newBids {
		if b.ID == id {
			b.Status = t.statusOf(b)
			return &b, nil
		}
	}
	t.s.mu.RLock()
	b, err := t.s.getBid(id)
	t.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	b.Status = t.statusOf(*b)
	return b, nil
}

// CreateBid records a bid.
func (t *txRepo) CreateBid(_ context.Context, b *domain.Bid) error {
	for _, nb := range t.newBids {
		if nb.ID == b.ID {
			return fmt.Errorf("create bid %s: %w", b.ID, apperr.ErrConflict)
		}
	}
	t.s.mu.RLock()
	err := t.s.checkNewBid(b)
	t.s.mu.RUnlock()
	if err != nil {
		return err
	}
	t.newBids = append(t.newBids, *b)
	return nil
}

// SetBidStatus updates a single bid. A second ACCEPTED bid on a delivery is refused.
func (t *txRepo) SetBidStatus(ctx context.Context, id uuid.UUID, status domain.BidStatus) error {
	b, err := t.GetBid(ctx, id)
	if err != nil {
		return err
	}
	if status == domain.BidAccepted {
		for _, other := range t.bidsOf(b.DeliveryID) {
			if other.ID != id && other.Status == domain.BidAccepted {
				return fmt.Errorf("set bid %s status: %w", id, apperr.ErrNoLongerAvailable)
			}
		}
	}
	t.bidStatus[id] = status
	return nil
}

// BulkReject rejects every PENDING sibling of exceptBidID.
func (t *txRepo) BulkReject(_ context.Context, deliveryID, exceptBidID uuid.UUID) (int64, error) {
	var n int64
	for _, b := range t.bidsOf(deliveryID) {
		if b.ID != exceptBidID && b.Status == domain.BidPending {
			t.bidStatus[b.ID] = domain.BidRejected
			n++
		}
	}
	return n, nil
}

func (t *txRepo) statusOf(b domain.Bid) domain.BidStatus {
	if st, ok := t.bidStatus[b.ID]; ok {
		return st
	}
	return b.Status
}

func (t *txRepo) bidsOf(deliveryID uuid.UUID) []domain.Bid {
	t.s.mu.RLock()
	out := t.s.sortedBids(deliveryID)
	t.s.mu.RUnlock()
	for _, b := range t.newBids {
		if b.DeliveryID == deliveryID {
			out = append(out, b)
		}
	}
	for i := range out {
		out[i].Status = t.statusOf(out[i])
	}
	return out
}

func (t *txRepo) delivery(id uuid.UUID) (*domain.Delivery, error) {
	if d, ok := t.deliveries[id]; ok {
		return cloneDelivery(d), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	d, ok := t.s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, id)
	}
	return cloneDelivery(d), nil
}

func (t *txRepo) lock(ctx context.Context, id uuid.UUID, mode lockMode) error {
	switch held := t.modes[id]; {
	case held == lockExclusive, held == mode:
		return nil
	case held == lockShared && mode == lockExclusive:
		return errLockUpgrade
	}

	t.s.mu.RLock()
	_, ok := t.s.deliveries[id]
	t.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, id)
	}

	l := t.s.rowLock(id)
	if err := acquire(ctx, l, mode); err != nil {
		return err
	}
	t.modes[id] = mode
	t.held = append(t.held, heldLock{id: id, mode: mode, l: l})
	return nil
}

// acquire blocks until the row lock is taken or ctx is done. A lock obtained after
// ctx is done is released in the background.
func acquire(ctx context.Context, l *sync.RWMutex, mode lockMode) error {
	lockFn, unlockFn := l.Lock, l.Unlock
	if mode == lockShared {
		lockFn, unlockFn = l.RLock, l.RUnlock
	}

	done := make(chan struct{})
	go func() {
		lockFn()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		go func() {
			<-done
			unlockFn()
		}()
		return apperr.Transient(fmt.Errorf("acquire row lock: %w", ctx.Err()))
	}
}

func (t *txRepo) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, d := range t.deliveries {
		t.s.deliveries[id] = d
	}
	for _, b := range t.newBids {
		t.s.insertBid(b)
	}
	for id, st := range t.bidStatus {
		if row, ok := t.s.bids[id]; ok {
			row.bid.Status = st
		}
	}
}

func (t *txRepo) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		h := t.held[i]
		if h.mode == lockShared {
			h.l.RUnlock()
		} else {
			h.l.Unlock()
		}
	}
	t.held = nil
}
