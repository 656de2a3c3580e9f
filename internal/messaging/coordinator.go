package messaging

import (
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/service"
)

// Coordinator is the single entry point agent sessions and the MCP
// protocol engine use to send and receive Messages. It persists every
// message durably through service.MessageService first (so delivery
// survives a process restart per spec §3's store-and-forward guarantee),
// then attempts best-effort in-process delivery via Bus and, if a
// Transport is attached, cross-process delivery via NATS.
type Coordinator struct {
	messages  *service.MessageService
	bus       *Bus
	transport *Transport
}

func NewCoordinator(messages *service.MessageService, bus *Bus) *Coordinator {
	if bus == nil {
		bus = NewBus()
	}
	return &Coordinator{messages: messages, bus: bus}
}

// AttachTransport wires a NATS transport for cross-process fan-out. Safe
// to call once before Start; nil disables cross-process delivery (an
// all-in-one-process deployment doesn't need it).
func (c *Coordinator) AttachTransport(t *Transport) {
	c.transport = t
}

// SendDirect persists m and attempts immediate delivery.
func (c *Coordinator) SendDirect(sender, recipient, content string, priority domain.MessagePriority) (*domain.Message, error) {
	m, err := c.messages.SendDirect(sender, recipient, content, priority)
	if err != nil {
		return nil, err
	}
	c.deliver(m)
	return m, nil
}

// SendBroadcast persists m and fans it out to every connected session.
func (c *Coordinator) SendBroadcast(sender, content string, priority domain.MessagePriority) (*domain.Message, error) {
	m, err := c.messages.SendBroadcast(sender, content, priority)
	if err != nil {
		return nil, err
	}
	c.deliver(m)
	return m, nil
}

func (c *Coordinator) deliver(m *domain.Message) {
	delivered := c.bus.Publish(*m)
	if delivered {
		_ = c.messages.MarkDelivered(m.ID, time.Now())
	}
	if c.transport != nil {
		wm := wireMessage{ID: m.ID, Sender: m.Sender, Recipient: m.Recipient, Content: m.Content, Priority: string(m.Priority)}
		_ = c.transport.Publish(wm)
	}
}

// SubscribeAgent registers agentID with the in-process bus. Callers
// typically do this when an agent's MCP session is established and
// Unsubscribe it on disconnect.
func (c *Coordinator) SubscribeAgent(agentID string) <-chan domain.Message {
	return c.bus.Subscribe(agentID)
}

func (c *Coordinator) UnsubscribeAgent(agentID string, ch <-chan domain.Message) {
	c.bus.Unsubscribe(agentID, ch)
}

// Pending returns messages addressed to recipient that have not yet been
// delivered, for an agent session to drain on reconnect.
func (c *Coordinator) Pending(recipient string) ([]*domain.Message, error) {
	all, err := c.messages.ListForRecipient(recipient)
	if err != nil {
		return nil, err
	}
	pending := make([]*domain.Message, 0, len(all))
	for _, m := range all {
		if m.DeliveredAt == nil {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// MarkDelivered records that recipient has picked up messageID, e.g.
// after draining it from Pending.
func (c *Coordinator) MarkDelivered(messageID string) error {
	return c.messages.MarkDelivered(messageID, time.Now())
}
