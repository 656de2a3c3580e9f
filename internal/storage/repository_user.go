package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(u *domain.User) error {
	_, err := r.db.sql.Exec(`INSERT INTO users (id, username, email, role,
		active, locked, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email, string(u.Role), u.Active, u.Locked,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(id string) (*domain.User, error) {
	row := r.db.sql.QueryRow(userSelect+` WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(username string) (*domain.User, error) {
	row := r.db.sql.QueryRow(userSelect+` WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(u *domain.User, expectedUpdatedAt string) error {
	res, err := r.db.sql.Exec(`UPDATE users SET username=?, email=?, role=?,
		active=?, locked=?, updated_at=? WHERE id=? AND updated_at=?`,
		u.Username, u.Email, string(u.Role), u.Active, u.Locked,
		formatTime(u.UpdatedAt), u.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *UserRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *UserRepository) List() ([]*domain.User, error) {
	rows, err := r.db.sql.Query(userSelect + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

// SetPasswordHash upserts the credential row. Credentials are split from
// users (spec §4.5 access control plane) so a user lookup never carries a
// hash unless explicitly joined.
func (r *UserRepository) SetPasswordHash(userID, hash string, at string) error {
	_, err := r.db.sql.Exec(`INSERT INTO user_credentials (user_id, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		userID, hash, at)
	if err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	return nil
}

func (r *UserRepository) PasswordHash(userID string) (string, error) {
	var hash string
	err := r.db.sql.QueryRow(`SELECT password_hash FROM user_credentials WHERE user_id = ?`, userID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", domain.NewNotFound("user_credentials", userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load password hash: %w", err)
	}
	return hash, nil
}

const userSelect = `SELECT id, username, email, role, active, locked,
	created_at, updated_at FROM users`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Active, &u.Locked,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
