package fanout

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"service-dispatch/internal/logx"
)

// Subscriber is one connection's handle in the registry.
type Subscriber struct {
	id uint64
	ch chan Event
}

// ID returns the handle's process-unique id.
func (s *Subscriber) ID() uint64 { return s.id }

// Events returns the outbound queue. It is closed on Disconnect.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Hub is the in-process subscription registry and event router.
// Publish holds the registry lock while it enqueues, so events on a topic reach
// every subscriber in publish order.
type Hub struct {
	mu      sync.Mutex
	topics  map[string]map[*Subscriber]struct{}
	joined  map[*Subscriber]map[string]struct{}
	buffer  int
	nextID  atomic.Uint64
	logger  logx.Logger
	dropped prometheus.Counter
}

// NewHub creates a Hub whose subscribers queue up to buffer events each.
func NewHub(buffer int, logger logx.Logger, dropped prometheus.Counter) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Hub{
		topics:  make(map[string]map[*Subscriber]struct{}),
		joined:  make(map[*Subscriber]map[string]struct{}),
		buffer:  buffer,
		logger:  logger,
		dropped: dropped,
	}
}

// Connect registers a new subscriber with no topics.
func (h *Hub) Connect() *Subscriber {
	s := &Subscriber{id: h.nextID.Add(1), ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.joined[s] = make(map[string]struct{})
	h.mu.Unlock()
	return s
}

// Join adds s to topic. Joining twice or after Disconnect is a no-op.
func (h *Hub) Join(s *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	mine, ok := h.joined[s]
	if !ok {
		return
	}
	mine[topic] = struct{}{}
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.topics[topic] = set
	}
	set[s] = struct{}{}
}

// Leave removes s from topic. Leaving a topic never joined is a no-op.
func (h *Hub) Leave(s *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if mine, ok := h.joined[s]; ok {
		delete(mine, topic)
	}
	h.removeFromTopic(s, topic)
}

// Disconnect removes s from every topic and closes its queue. Idempotent.
func (h *Hub) Disconnect(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	mine, ok := h.joined[s]
	if !ok {
		return
	}
	for topic := range mine {
		h.removeFromTopic(s, topic)
	}
	delete(h.joined, s)
	close(s.ch)
}

// Topics lists the topics s has joined, sorted.
func (h *Hub) Topics(s *Subscriber) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := lo.Keys(h.joined[s])
	sort.Strings(out)
	return out
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Publish enqueues e once for every subscriber of any of its topics. A subscriber
// whose queue is full misses the event.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*Subscriber]struct{})
	for _, topic := range lo.Uniq(e.Topics) {
		for s := range h.topics[topic] {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			select {
			case s.ch <- e:
			default:
				if h.dropped != nil {
					h.dropped.Inc()
				}
				h.logger.Warn("fan-out event dropped: subscriber buffer full",
					logx.String("type", string(e.Type)),
					logx.String("topic", topic),
					logx.Stringer("delivery_id", e.DeliveryID),
					logx.Any("subscriber", s.id),
				)
			}
		}
	}
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := lo.Keys(h.joined)
	h.mu.Unlock()
	for _, s := range subs {
		h.Disconnect(s)
	}
}

// Caller holds h.mu.
func (h *Hub) removeFromTopic(s *Subscriber, topic string) {
	set, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}
