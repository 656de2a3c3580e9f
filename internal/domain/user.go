package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user role used by the permission matrix (internal/security).
type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleCoordinator Role = "Coordinator"
	RoleAgent       Role = "Agent"
	RoleViewer      Role = "Viewer"
)

type User struct {
	ID         string
	Username   string
	Email      string
	Role       Role
	Active     bool
	Locked     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const MaxUsernameLen = 100

func NewUser(username, email string, role Role) (*User, error) {
	if len(username) == 0 || len(username) > MaxUsernameLen {
		return nil, NewValidation("username must be 1-%d characters", MaxUsernameLen)
	}
	now := time.Now()
	return &User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) Lock() {
	u.Locked = true
	u.UpdatedAt = time.Now()
}

func (u *User) Unlock() {
	u.Locked = false
	u.UpdatedAt = time.Now()
}

func (u *User) Deactivate() {
	u.Active = false
	u.UpdatedAt = time.Now()
}

// CanAuthenticate reports whether u is eligible to receive a new bearer
// token pair.
func (u *User) CanAuthenticate() bool {
	return u.Active && !u.Locked
}
