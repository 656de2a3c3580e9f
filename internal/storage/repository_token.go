package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type TokenRepository struct {
	db *DB
}

func NewTokenRepository(db *DB) *TokenRepository { return &TokenRepository{db: db} }

func (r *TokenRepository) Create(t *domain.AgentToken) error {
	_, err := r.db.sql.Exec(`INSERT INTO agent_tokens (id, agent_id, name,
		permissions, secret_hash, expires_at, active, created_at, revoked_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.AgentID, t.Name, marshalJSON(t.Permissions), t.SecretHash,
		formatOptionalTime(t.ExpiresAt), t.Active, formatTime(t.CreatedAt),
		formatOptionalTime(t.RevokedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByID(id string) (*domain.AgentToken, error) {
	row := r.db.sql.QueryRow(tokenSelect+` WHERE id = ?`, id)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("agent_token", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agent token: %w", err)
	}
	return t, nil
}

func (r *TokenRepository) ListByAgent(agentID string) ([]*domain.AgentToken, error) {
	rows, err := r.db.sql.Query(tokenSelect+` WHERE agent_id = ? ORDER BY created_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent tokens: %w", err)
	}
	defer rows.Close()
	return scanTokens(rows)
}

// Revoke is idempotent at the storage layer too: re-revoking an
// already-revoked row is a no-op, matching domain.AgentToken.Revoke.
func (r *TokenRepository) Revoke(id string, revokedAt string) error {
	_, err := r.db.sql.Exec(`UPDATE agent_tokens SET active = 0, revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`, revokedAt, id)
	if err != nil {
		return fmt.Errorf("failed to revoke agent token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM agent_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent token: %w", err)
	}
	return nil
}

const tokenSelect = `SELECT id, agent_id, name, permissions, secret_hash,
	expires_at, active, created_at, revoked_at FROM agent_tokens`

func scanToken(row rowScanner) (*domain.AgentToken, error) {
	var t domain.AgentToken
	var permsJSON, createdAt string
	var expiresAt, revokedAt sql.NullString
	err := row.Scan(&t.ID, &t.AgentID, &t.Name, &permsJSON, &t.SecretHash,
		&expiresAt, &t.Active, &createdAt, &revokedAt)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(permsJSON, &t.Permissions)
	t.ExpiresAt = parseOptionalTime(expiresAt)
	t.CreatedAt = parseTime(createdAt)
	t.RevokedAt = parseOptionalTime(revokedAt)
	return &t, nil
}

func scanTokens(rows *sql.Rows) ([]*domain.AgentToken, error) {
	var out []*domain.AgentToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent token row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
