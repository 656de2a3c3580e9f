package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type ConfigRepository struct {
	db *DB
}

func NewConfigRepository(db *DB) *ConfigRepository { return &ConfigRepository{db: db} }

func (r *ConfigRepository) Create(c *domain.Configuration) error {
	_, err := r.db.sql.Exec(`INSERT INTO configurations (id, name, max_concurrency,
		timeout_ms, heartbeat_interval_ms, load_balancing, failure_handling,
		behavioral, integrations, version, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.MaxConcurrency, c.Timeout.Milliseconds(),
		c.HeartbeatInterval.Milliseconds(), string(c.LoadBalancing),
		marshalJSON(c.FailureHandling), marshalJSON(c.Behavioral),
		marshalJSON(c.Integrations), c.Version, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	return nil
}

func (r *ConfigRepository) FindByID(id string) (*domain.Configuration, error) {
	row := r.db.sql.QueryRow(configSelect+` WHERE id = ?`, id)
	c, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("configuration", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find configuration: %w", err)
	}
	return c, nil
}

func (r *ConfigRepository) FindByName(name string) (*domain.Configuration, error) {
	row := r.db.sql.QueryRow(configSelect+` WHERE name = ?`, name)
	c, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("configuration", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find configuration by name: %w", err)
	}
	return c, nil
}

// Update is version-guarded, like Knowledge: Configuration is the other
// entity spec §3 names as a monotonic-version optimistic lock.
func (r *ConfigRepository) Update(c *domain.Configuration, expectedVersion int) error {
	res, err := r.db.sql.Exec(`UPDATE configurations SET name=?, max_concurrency=?,
		timeout_ms=?, heartbeat_interval_ms=?, load_balancing=?, failure_handling=?,
		behavioral=?, integrations=?, version=?, updated_at=? WHERE id=? AND version=?`,
		c.Name, c.MaxConcurrency, c.Timeout.Milliseconds(), c.HeartbeatInterval.Milliseconds(),
		string(c.LoadBalancing), marshalJSON(c.FailureHandling), marshalJSON(c.Behavioral),
		marshalJSON(c.Integrations), c.Version, formatTime(c.UpdatedAt), c.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update configuration: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *ConfigRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM configurations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	return nil
}

func (r *ConfigRepository) List() ([]*domain.Configuration, error) {
	rows, err := r.db.sql.Query(configSelect + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()
	return scanConfigs(rows)
}

const configSelect = `SELECT id, name, max_concurrency, timeout_ms,
	heartbeat_interval_ms, load_balancing, failure_handling, behavioral,
	integrations, version, created_at, updated_at FROM configurations`

func scanConfig(row rowScanner) (*domain.Configuration, error) {
	var c domain.Configuration
	var timeoutMs, heartbeatMs int64
	var failureJSON, behavioralJSON, integrationsJSON, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.MaxConcurrency, &timeoutMs, &heartbeatMs,
		&c.LoadBalancing, &failureJSON, &behavioralJSON, &integrationsJSON,
		&c.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Timeout = time.Duration(timeoutMs) * time.Millisecond
	c.HeartbeatInterval = time.Duration(heartbeatMs) * time.Millisecond
	unmarshalJSON(failureJSON, &c.FailureHandling)
	unmarshalJSON(behavioralJSON, &c.Behavioral)
	unmarshalJSON(integrationsJSON, &c.Integrations)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func scanConfigs(rows *sql.Rows) ([]*domain.Configuration, error) {
	var out []*domain.Configuration
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
