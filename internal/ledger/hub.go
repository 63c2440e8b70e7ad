package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

const defaultHubBuffer = 64

// Hub fans committed ledger events out to in-process subscribers.
// Each subscriber has its own buffer and goroutine; a full buffer drops the event for that subscriber only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*hubSubscription]struct{}
	buffer int
}

// NewHub creates a hub with the given per-subscriber buffer (0 for the default)
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	return &Hub{
		subs:   make(map[*hubSubscription]struct{}),
		buffer: buffer,
	}
}

type hubSubscription struct {
	hub     *Hub
	filter  domain.EventFilter
	handler Handler
	ch      chan *domain.LedgerEvent
	done    chan struct{}
	once    sync.Once
}

// Subscribe implements Notifier
func (h *Hub) Subscribe(ctx context.Context, filter domain.EventFilter, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "handler is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &hubSubscription{
		hub:     h,
		filter:  filter,
		handler: handler,
		ch:      make(chan *domain.LedgerEvent, h.buffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run(ctx)
	return s, nil
}

// Publish delivers event to every matching subscriber without blocking
func (h *Hub) Publish(event *domain.LedgerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if !s.filter.Match(event.Type) {
			continue
		}
		select {
		case s.ch <- event:
		case <-s.done:
		default:
			logger.Warn("Dropping ledger event for slow subscriber",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
			)
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (s *hubSubscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Unsubscribe()
			return
		case event := <-s.ch:
			s.handler(event)
		}
	}
}

func (s *hubSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.done)
	})
}
