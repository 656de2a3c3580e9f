package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// AgentRepository persists domain.Agent rows. The query-building and
// scanAgent(rows) pattern is grounded on internal/memory/agent.go's
// GetAgentLearnings/scanAgentLearnings.
type AgentRepository struct {
	db *DB
}

func NewAgentRepository(db *DB) *AgentRepository { return &AgentRepository{db: db} }

func (r *AgentRepository) Create(a *domain.Agent) error {
	_, err := r.db.sql.Exec(`
		INSERT INTO agents (id, name, kind, capabilities, host, port, protocol,
			last_heartbeat, connection_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Kind), marshalJSON(a.Capabilities),
		a.Connection.Host, a.Connection.Port, a.Connection.Protocol,
		formatTime(a.Connection.LastHeartbeat), a.Connection.ConnectionID,
		string(a.Status), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *AgentRepository) FindByID(id string) (*domain.Agent, error) {
	row := r.db.sql.QueryRow(`SELECT id, name, kind, capabilities, host, port,
		protocol, last_heartbeat, connection_id, status, created_at, updated_at
		FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("agent", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}
	return a, nil
}

// Update applies an optimistic-lock precondition: expectedUpdatedAt must
// match the row's current updated_at (spec §3 "Ownership", §5 "optimistic
// concurrency").
func (r *AgentRepository) Update(a *domain.Agent, expectedUpdatedAt string) error {
	res, err := r.db.sql.Exec(`UPDATE agents SET name=?, kind=?, capabilities=?,
		host=?, port=?, protocol=?, last_heartbeat=?, connection_id=?, status=?,
		updated_at=? WHERE id=? AND updated_at=?`,
		a.Name, string(a.Kind), marshalJSON(a.Capabilities),
		a.Connection.Host, a.Connection.Port, a.Connection.Protocol,
		formatTime(a.Connection.LastHeartbeat), a.Connection.ConnectionID,
		string(a.Status), formatTime(a.UpdatedAt), a.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *AgentRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

func (r *AgentRepository) List() ([]*domain.Agent, error) {
	rows, err := r.db.sql.Query(`SELECT id, name, kind, capabilities, host, port,
		protocol, last_heartbeat, connection_id, status, created_at, updated_at
		FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *AgentRepository) ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error) {
	rows, err := r.db.sql.Query(`SELECT id, name, kind, capabilities, host, port,
		protocol, last_heartbeat, connection_id, status, created_at, updated_at
		FROM agents WHERE status = ? ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list agents by status: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *AgentRepository) CountByKind(kind domain.AgentKind) (int, error) {
	var n int
	err := r.db.sql.QueryRow(`SELECT COUNT(*) FROM agents WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var a domain.Agent
	var capsJSON, lastHB, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.Name, &a.Kind, &capsJSON, &a.Connection.Host,
		&a.Connection.Port, &a.Connection.Protocol, &lastHB,
		&a.Connection.ConnectionID, &a.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(capsJSON, &a.Capabilities)
	a.Connection.LastHeartbeat = parseTime(lastHB)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func scanAgents(rows *sql.Rows) ([]*domain.Agent, error) {
	var out []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
