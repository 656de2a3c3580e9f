// Package messaging delivers domain.Message values between connected
// agent sessions: an in-process fan-out bus for same-process delivery,
// and a NATS-backed transport for fan-out across coordinator/worker
// processes (spec §3 Message, §4.1's notification delivery). Grounded on
// internal/events/bus.go's backpressure-with-retry subscription model,
// generalized from EventType-keyed targets to agent-id-keyed recipients
// of domain.Message, and on internal/nats/client.go's reconnecting
// connection wrapper.
package messaging

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

const broadcastTarget = "all"

// subscription is one agent's live delivery channel.
type subscription struct {
	ch     chan domain.Message
	target string
}

// Backpressure tuning, unchanged from the teacher's bus (spec has no
// opinion on these; they bound how hard the bus works before dropping a
// message that is still safe in the store behind it).
const (
	maxBackpressureRetries = 3
	backpressureRetryDelay = 10 * time.Millisecond
)

// Bus fans a sent Message out to every agent session subscribed to its
// recipient (or to every session, for a broadcast). Delivery here is
// best-effort in-process notification; durable delivery is the storage
// layer's job via service.MessageService — a dropped bus delivery just
// means the recipient picks the message up on its next poll.
type Bus struct {
	mu            sync.RWMutex
	subscribers   map[string][]*subscription
	droppedEvents uint64
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]*subscription)}
}

// Subscribe registers agentID to receive Messages addressed to it
// directly, plus every broadcast. The returned channel is buffered;
// callers must keep draining it until Unsubscribe.
func (b *Bus) Subscribe(agentID string) <-chan domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan domain.Message, 100), target: agentID}
	b.subscribers[agentID] = append(b.subscribers[agentID], sub)
	return sub.ch
}

// Unsubscribe removes and closes agentID's subscription channel.
func (b *Bus) Unsubscribe(agentID string, ch <-chan domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[agentID]
	if !ok {
		return
	}
	for i, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			b.subscribers[agentID] = append(subs[:i], subs[i+1:]...)
			if len(b.subscribers[agentID]) == 0 {
				delete(b.subscribers, agentID)
			}
			return
		}
	}
}

// Publish fans m out to its recipient's subscribers, or to every
// subscriber when m.IsBroadcast(). Returns true if at least one
// subscriber was live to receive it (informational only — absence of a
// live subscriber is not an error, since storage already holds m for
// later pickup).
func (b *Bus) Publish(m domain.Message) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var targets []*subscription
	if m.IsBroadcast() {
		for _, subs := range b.subscribers {
			targets = append(targets, subs...)
		}
	} else {
		targets = append(targets, b.subscribers[m.Recipient]...)
	}

	delivered := false
	for _, sub := range targets {
		if b.sendWithBackpressure(sub, m) {
			delivered = true
		}
	}
	return delivered
}

func (b *Bus) sendWithBackpressure(sub *subscription, m domain.Message) bool {
	select {
	case sub.ch <- m:
		return true
	default:
	}

	for retry := 1; retry <= maxBackpressureRetries; retry++ {
		time.Sleep(backpressureRetryDelay)
		select {
		case sub.ch <- m:
			log.Printf("[MESSAGING] delivered after %d retry(ies): id=%s recipient=%s", retry, m.ID, sub.target)
			return true
		default:
		}
	}

	dropped := atomic.AddUint64(&b.droppedEvents, 1)
	log.Printf("[MESSAGING] WARNING: dropped in-process delivery after %d retries: id=%s recipient=%s (total dropped: %d)",
		maxBackpressureRetries, m.ID, sub.target, dropped)
	return false
}

// DroppedCount returns the number of in-process deliveries dropped due
// to a persistently full subscriber channel.
func (b *Bus) DroppedCount() uint64 {
	return atomic.LoadUint64(&b.droppedEvents)
}
