package notifications

import (
	"log"
	"sync"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// Channel sends a notification for one audit event (spec §3's audit
// log, supplemented with external alerting not named by the distilled
// spec but present in original_source's squad-alert routing this
// package is grounded on).
type Channel interface {
	Name() string
	ShouldNotify(event *domain.AuditEvent) bool
	Send(event *domain.AuditEvent) error
}

// Router dispatches audit events to multiple notification channels.
// Grounded on internal/notifications/router.go's Router, rewired from
// the teacher's generic events.Event to domain.AuditEvent so the same
// fan-out (one goroutine per channel, fire-and-forget plus a blocking
// variant) now carries compliance-grade audit data instead of
// agent-squad signals.
type Router struct {
	channels []Channel
	mu       sync.RWMutex
}

func NewRouter(channels []Channel) *Router {
	if channels == nil {
		channels = []Channel{}
	}
	return &Router{channels: channels}
}

func (r *Router) AddChannel(channel Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
}

func (r *Router) RemoveChannel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filtered := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		if ch.Name() != name {
			filtered = append(filtered, ch)
		}
	}
	r.channels = filtered
}

// Route sends event to every matching channel asynchronously, logging
// failures without returning them (fire-and-forget, matching the
// teacher's Route).
func (r *Router) Route(event *domain.AuditEvent) {
	for _, ch := range r.snapshot() {
		go func(channel Channel) {
			if !channel.ShouldNotify(event) {
				return
			}
			if err := channel.Send(event); err != nil {
				log.Printf("[NOTIFY-ROUTER] failed to send audit event %s to channel %s: %v", event.ID, channel.Name(), err)
			}
		}(ch)
	}
}

// RouteWithWait is Route's blocking variant, used where a caller must
// know delivery finished before proceeding.
func (r *Router) RouteWithWait(event *domain.AuditEvent) {
	var wg sync.WaitGroup
	for _, ch := range r.snapshot() {
		wg.Add(1)
		go func(channel Channel) {
			defer wg.Done()
			if !channel.ShouldNotify(event) {
				return
			}
			if err := channel.Send(event); err != nil {
				log.Printf("[NOTIFY-ROUTER] failed to send audit event %s to channel %s: %v", event.ID, channel.Name(), err)
			}
		}(ch)
	}
	wg.Wait()
}

func (r *Router) GetChannels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.channels))
	for i, ch := range r.channels {
		names[i] = ch.Name()
	}
	return names
}

func (r *Router) snapshot() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, len(r.channels))
	copy(out, r.channels)
	return out
}
