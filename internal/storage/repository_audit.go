package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// AuditRepository is append-only: there is deliberately no Update or Delete
// method (spec §3, audit events "never edited").
type AuditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Create(e *domain.AuditEvent) error {
	_, err := r.db.sql.Exec(`INSERT INTO audit_events (id, kind, custom_kind,
		severity, actor, resource_type, resource_id, action, metadata, result, timestamp)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, string(e.Kind), e.CustomKind, string(e.Severity), e.Actor,
		e.ResourceType, e.ResourceID, e.Action, marshalJSON(e.Metadata),
		string(e.Result), formatTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) FindByID(id string) (*domain.AuditEvent, error) {
	row := r.db.sql.QueryRow(auditSelect+` WHERE id = ?`, id)
	e, err := scanAudit(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("audit_event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find audit event: %w", err)
	}
	return e, nil
}

func (r *AuditRepository) ListByKind(kind domain.AuditKind) ([]*domain.AuditEvent, error) {
	rows, err := r.db.sql.Query(auditSelect+` WHERE kind = ? ORDER BY timestamp`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events by kind: %w", err)
	}
	defer rows.Close()
	return scanAudits(rows)
}

func (r *AuditRepository) ListByActor(actor string) ([]*domain.AuditEvent, error) {
	rows, err := r.db.sql.Query(auditSelect+` WHERE actor = ? ORDER BY timestamp`, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events by actor: %w", err)
	}
	defer rows.Close()
	return scanAudits(rows)
}

func (r *AuditRepository) ListSince(since string) ([]*domain.AuditEvent, error) {
	rows, err := r.db.sql.Query(auditSelect+` WHERE timestamp >= ? ORDER BY timestamp`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events since: %w", err)
	}
	defer rows.Close()
	return scanAudits(rows)
}

const auditSelect = `SELECT id, kind, custom_kind, severity, actor,
	resource_type, resource_id, action, metadata, result, timestamp FROM audit_events`

func scanAudit(row rowScanner) (*domain.AuditEvent, error) {
	var e domain.AuditEvent
	var metadataJSON, timestamp string
	err := row.Scan(&e.ID, &e.Kind, &e.CustomKind, &e.Severity, &e.Actor,
		&e.ResourceType, &e.ResourceID, &e.Action, &metadataJSON, &e.Result, &timestamp)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(metadataJSON, &e.Metadata)
	e.Timestamp = parseTime(timestamp)
	return &e, nil
}

func scanAudits(rows *sql.Rows) ([]*domain.AuditEvent, error) {
	var out []*domain.AuditEvent
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
