package engine

import (
	"sync"

	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/observability"
)

type subscriber struct {
	ch      chan journal.Envelope
	dropped bool
}

// hub fans sealed envelopes out to live watchers.
type hub struct {
	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	closed  bool
	metrics *observability.Metrics
}

func newHub(metrics *observability.Metrics) *hub {
	return &hub{subs: make(map[*subscriber]struct{}), metrics: metrics}
}

func (h *hub) subscribe(buffer int) *subscriber {
	sub := &subscriber{ch: make(chan journal.Envelope, buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	h.metrics.WatcherAdded()
	return sub
}

func (h *hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	h.metrics.WatcherRemoved(false)
}

// publish never blocks: a watcher whose buffer is full is disconnected.
func (h *hub) publish(env journal.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- env:
		default:
			sub.dropped = true
			delete(h.subs, sub)
			close(sub.ch)
			h.metrics.WatcherRemoved(true)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
		h.metrics.WatcherRemoved(false)
	}
}

func (h *hub) wasDropped(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sub.dropped
}
