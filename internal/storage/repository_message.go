package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository { return &MessageRepository{db: db} }

func (r *MessageRepository) Create(m *domain.Message) error {
	_, err := r.db.sql.Exec(`INSERT INTO messages (id, sender, recipient, content,
		priority, correlation_id, issue_id, knowledge_references,
		requires_confirmation, compressed, created_at, delivered_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Sender, m.Recipient, m.Content, string(m.Priority), m.CorrelationID,
		m.IssueID, marshalJSON(m.KnowledgeReferences), m.RequiresConfirmation,
		m.Compressed, formatTime(m.CreatedAt), formatOptionalTime(m.DeliveredAt))
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(id string) (*domain.Message, error) {
	row := r.db.sql.QueryRow(messageSelect+` WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("message", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return m, nil
}

// MarkDelivered has no optimistic-lock precondition: delivery is a
// monotonic, idempotent transition (spec §3 "at most once").
func (r *MessageRepository) MarkDelivered(id string, deliveredAt string) error {
	_, err := r.db.sql.Exec(`UPDATE messages SET delivered_at = ?
		WHERE id = ? AND delivered_at IS NULL`, deliveredAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByRecipient(recipient string) ([]*domain.Message, error) {
	rows, err := r.db.sql.Query(messageSelect+` WHERE recipient = ? ORDER BY created_at`, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by recipient: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *MessageRepository) ListUndelivered() ([]*domain.Message, error) {
	rows, err := r.db.sql.Query(messageSelect + ` WHERE delivered_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

const messageSelect = `SELECT id, sender, recipient, content, priority,
	correlation_id, issue_id, knowledge_references, requires_confirmation,
	compressed, created_at, delivered_at FROM messages`

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var refsJSON, createdAt string
	var deliveredAt sql.NullString
	err := row.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Content, &m.Priority,
		&m.CorrelationID, &m.IssueID, &refsJSON, &m.RequiresConfirmation,
		&m.Compressed, &createdAt, &deliveredAt)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(refsJSON, &m.KnowledgeReferences)
	m.CreatedAt = parseTime(createdAt)
	m.DeliveredAt = parseOptionalTime(deliveredAt)
	return &m, nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var out []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
