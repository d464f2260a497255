// Package events carries domain events between the procurement managers.
package events

import (
	"context"
	"sync"
	"time"
)

type Topic string

const (
	ProposalCreated  Topic = "proposal.created"
	ProposalReceived Topic = "proposal.received"
	RFPStatusChanged Topic = "rfp.status_changed"
)

type Event struct {
	Topic      Topic     `json:"topic"`
	RFPID      string    `json:"rfpId,omitempty"`
	VendorID   string    `json:"vendorId,omitempty"`
	ProposalID string    `json:"proposalId,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	At         time.Time `json:"at"`
}

type Handler func(ctx context.Context, e Event) error

// Bus dispatches events to subscribers synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	all      []Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// SubscribeAll registers h for every topic. These handlers run after the
// topic-specific ones.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish runs every handler for e.Topic and returns the first error. A
// failing handler does not stop the remaining ones.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Topic])+len(b.all))
	handlers = append(handlers, b.handlers[e.Topic]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	var first error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
