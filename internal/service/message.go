package service

import (
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type MessageRepository interface {
	Create(m *domain.Message) error
	FindByID(id string) (*domain.Message, error)
	MarkDelivered(id string, deliveredAt string) error
	ListByRecipient(recipient string) ([]*domain.Message, error)
	ListUndelivered() ([]*domain.Message, error)
}

// MessageService implements store-and-forward messaging (spec §3: at most
// once delivery, no delete).
type MessageService struct {
	repo  MessageRepository
	audit Recorder
}

func NewMessageService(repo MessageRepository, audit Recorder) *MessageService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &MessageService{repo: repo, audit: audit}
}

func (s *MessageService) SendDirect(sender, recipient, content string, priority domain.MessagePriority) (*domain.Message, error) {
	m, err := domain.NewDirectMessage(sender, recipient, content, priority)
	if err != nil {
		return nil, err
	}
	return s.send(m)
}

func (s *MessageService) SendBroadcast(sender, content string, priority domain.MessagePriority) (*domain.Message, error) {
	m, err := domain.NewBroadcastMessage(sender, content, priority)
	if err != nil {
		return nil, err
	}
	return s.send(m)
}

func (s *MessageService) send(m *domain.Message) (*domain.Message, error) {
	if err := s.repo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditMessageSent, domain.SeverityLow,
		m.Sender, "message", m.ID, "send", domain.AuditSuccess))
	return m, nil
}

// MarkDelivered is idempotent: redelivering an already-delivered message is
// a no-op, matching the storage layer's WHERE delivered_at IS NULL guard.
func (s *MessageService) MarkDelivered(messageID string, at time.Time) error {
	if err := s.repo.MarkDelivered(messageID, formatTimeCompat(at)); err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}

func (s *MessageService) Get(messageID string) (*domain.Message, error) {
	return s.repo.FindByID(messageID)
}

func (s *MessageService) ListForRecipient(recipient string) ([]*domain.Message, error) {
	return s.repo.ListByRecipient(recipient)
}

func (s *MessageService) ListUndelivered() ([]*domain.Message, error) {
	return s.repo.ListUndelivered()
}
