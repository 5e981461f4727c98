package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"leaguetrades/internal/models"
)

// Hub fans committed trade events out to live subscribers. Slow subscribers
// lose events rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64

	buf     int
	dropped uint64
	logger  *zap.Logger
}

// Subscription receives events for one trade, or for every trade when TradeID is 0.
type Subscription struct {
	id      uint64
	TradeID uint64
	C       <-chan models.TradeEvent
	ch      chan models.TradeEvent
}

func NewHub(buf int, logger *zap.Logger) *Hub {
	if buf <= 0 {
		buf = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   map[uint64]*Subscription{},
		buf:    buf,
		logger: logger,
	}
}

func (h *Hub) Subscribe(tradeID uint64) *Subscription {
	ch := make(chan models.TradeEvent, h.buf)
	h.mu.Lock()
	h.nextID++
	sub := &Subscription{id: h.nextID, TradeID: tradeID, C: ch, ch: ch}
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Publish implements service.Publisher.
func (h *Hub) Publish(evt models.TradeEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.TradeID != 0 && sub.TradeID != evt.TradeID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Run logs fan-out stats until ctx is done.
func (h *Hub) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.logger.Info("trade stream stats",
				zap.Int("subscribers", h.Subscribers()),
				zap.Uint64("dropped", h.Dropped()),
			)
		}
	}
}
