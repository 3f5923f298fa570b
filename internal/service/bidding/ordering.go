package bidding

import (
	"sync"

	"github.com/google/uuid"
)

// deliveryOrder serializes a delivery's state changes together with their
// notifications, so events reach the publisher in commit order.
type deliveryOrder struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func newDeliveryOrder() *deliveryOrder {
	return &deliveryOrder{locks: make(map[uuid.UUID]*orderLock)}
}

// lock blocks until the caller owns id's section and returns the release func.
func (o *deliveryOrder) lock(id uuid.UUID) func() {
	o.mu.Lock()
	l, ok := o.locks[id]
	if !ok {
		l = &orderLock{}
		o.locks[id] = l
	}
	l.refs++
	o.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, id)
		}
		o.mu.Unlock()
	}
}

// held reports how many delivery sections are in use or awaited.
func (o *deliveryOrder) held() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.locks)
}
