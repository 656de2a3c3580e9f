package domain

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a single named capability checked by the security core's
// permission matrix (spec §4.6).
type Permission string

const (
	PermViewDashboard   Permission = "ViewDashboard"
	PermCreateIssue     Permission = "CreateIssue"
	PermUpdateIssue     Permission = "UpdateIssue"
	PermDeleteIssue     Permission = "DeleteIssue"
	PermCreateKnowledge Permission = "CreateKnowledge"
	PermReadKnowledge   Permission = "ReadKnowledge"
	PermSendMessage     Permission = "SendMessage"
	PermManageAgents    Permission = "ManageAgents"
	PermManageUsers     Permission = "ManageUsers"
	PermManageTokens    Permission = "ManageTokens"
	PermViewAudit       Permission = "ViewAudit"
)

// AdminOnlyPermissions are never grantable to an agent token (spec §4.6,
// supplemented feature from vibe-ensemble-security/src/middleware.rs).
var AdminOnlyPermissions = map[Permission]bool{
	PermManageUsers:  true,
	PermManageTokens: true,
}

// AgentToken binds an agent id to a permission subset and a bcrypt hash of
// the bearer secret; only the plaintext bearer value is ever returned to
// the client, at creation time (spec §3, §4.6).
type AgentToken struct {
	ID          string
	AgentID     string
	Name        string
	Permissions []Permission
	SecretHash  string
	ExpiresAt   *time.Time
	Active      bool
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

func NewAgentToken(agentID, name string, permissions []Permission, secretHash string, expiresAt *time.Time) (*AgentToken, error) {
	if agentID == "" {
		return nil, NewValidation("agent token requires an agent id")
	}
	for _, p := range permissions {
		if AdminOnlyPermissions[p] {
			return nil, NewValidation("agent tokens may never hold admin-only permission %s", p)
		}
	}
	return &AgentToken{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Name:        name,
		Permissions: append([]Permission(nil), permissions...),
		SecretHash:  secretHash,
		ExpiresAt:   expiresAt,
		Active:      true,
		CreatedAt:   time.Now(),
	}, nil
}

func (t *AgentToken) HasPermission(p Permission) bool {
	if !t.IsValid(time.Now()) {
		return false
	}
	for _, got := range t.Permissions {
		if got == p {
			return true
		}
	}
	return false
}

func (t *AgentToken) IsValid(now time.Time) bool {
	if !t.Active || t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && !now.Before(*t.ExpiresAt) {
		return false
	}
	return true
}

// Revoke is idempotent: revoking an already-revoked token is a no-op that
// returns success (spec §8 round-trip property).
func (t *AgentToken) Revoke() {
	if t.RevokedAt != nil {
		return
	}
	now := time.Now()
	t.RevokedAt = &now
	t.Active = false
}
