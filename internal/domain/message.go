package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessagePriority string

const (
	MessagePriorityLow    MessagePriority = "Low"
	MessagePriorityNormal MessagePriority = "Normal"
	MessagePriorityHigh   MessagePriority = "High"
	MessagePriorityUrgent MessagePriority = "Urgent"
)

const MaxMessageContentLen = 10000

// Message is either Direct (Recipient set) or Broadcast (Recipient empty).
// Delivery is store-and-forward with best-effort confirmation (spec §1
// Non-goals); there is no delete.
type Message struct {
	ID                   string
	Sender               string
	Recipient            string // empty == Broadcast
	Content              string
	Priority             MessagePriority
	CorrelationID        string
	IssueID              string
	KnowledgeReferences  []string
	RequiresConfirmation bool
	Compressed           bool
	CreatedAt            time.Time
	DeliveredAt          *time.Time
}

func (m *Message) IsBroadcast() bool { return m.Recipient == "" }

func NewDirectMessage(sender, recipient, content string, priority MessagePriority) (*Message, error) {
	if recipient == "" {
		return nil, NewValidation("direct message requires a recipient")
	}
	return newMessage(sender, recipient, content, priority)
}

func NewBroadcastMessage(sender, content string, priority MessagePriority) (*Message, error) {
	return newMessage(sender, "", content, priority)
}

func newMessage(sender, recipient, content string, priority MessagePriority) (*Message, error) {
	if len(content) == 0 || len(content) > MaxMessageContentLen {
		return nil, NewValidation("message content must be 1-%d characters", MaxMessageContentLen)
	}
	if sender == "" {
		return nil, NewValidation("message sender must not be empty")
	}
	return &Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Priority:  priority,
		CreatedAt: time.Now(),
	}, nil
}

// MarkDelivered sets DeliveredAt at most once; redelivery attempts (e.g. a
// retried fan-out send) are no-ops rather than errors.
func (m *Message) MarkDelivered(at time.Time) {
	if m.DeliveredAt != nil {
		return
	}
	m.DeliveredAt = &at
}
