// Package memory is an in-process delivery store and bid ledger with the same
// locking behaviour as the Postgres repositories.
package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"service-dispatch/internal/domain"
)

type bidRow struct {
	bid domain.Bid
	seq uint64
}

// Store holds deliveries and bids. Row locks stand in for Postgres row-level locks.
type Store struct {
	mu         sync.RWMutex
	deliveries map[uuid.UUID]domain.Delivery
	bids       map[uuid.UUID]*bidRow
	byDelivery map[uuid.UUID][]uuid.UUID
	seq        uint64

	rowsMu sync.Mutex
	rows   map[uuid.UUID]*sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		deliveries: make(map[uuid.UUID]domain.Delivery),
		bids:       make(map[uuid.UUID]*bidRow),
		byDelivery: make(map[uuid.UUID][]uuid.UUID),
		rows:       make(map[uuid.UUID]*sync.RWMutex),
	}
}

func (s *Store) rowLock(id uuid.UUID) *sync.RWMutex {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		l = &sync.RWMutex{}
		s.rows[id] = l
	}
	return l
}

// sortedBids returns copies of a delivery's bids by amount, then created_at, then insertion order.
// Caller holds s.mu.
func (s *Store) sortedBids(deliveryID uuid.UUID) []domain.Bid {
	ids := s.byDelivery[deliveryID]
	rows := make([]*bidRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, s.bids[id])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.bid.Amount.Cmp(b.bid.Amount); c != 0 {
			return c < 0
		}
		if !a.bid.CreatedAt.Equal(b.bid.CreatedAt) {
			return a.bid.CreatedAt.Before(b.bid.CreatedAt)
		}
		return a.seq < b.seq
	})
	out := make([]domain.Bid, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.bid)
	}
	return out
}

func cloneDelivery(d domain.Delivery) *domain.Delivery {
	if d.DriverID != nil {
		id := *d.DriverID
		d.DriverID = &id
	}
	if d.PackageValue != nil {
		v := *d.PackageValue
		d.PackageValue = &v
	}
	return &d
}
