package security

import (
	"testing"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func TestCheckPermissionAdminHasAll(t *testing.T) {
	perms := []domain.Permission{
		domain.PermViewDashboard, domain.PermCreateIssue, domain.PermUpdateIssue,
		domain.PermDeleteIssue, domain.PermCreateKnowledge, domain.PermReadKnowledge,
		domain.PermSendMessage, domain.PermManageAgents, domain.PermManageUsers,
		domain.PermManageTokens, domain.PermViewAudit,
	}
	for _, p := range perms {
		if !CheckPermission(domain.RoleAdmin, p) {
			t.Errorf("RoleAdmin missing permission %v", p)
		}
	}
}

func TestCheckPermissionViewerIsReadOnly(t *testing.T) {
	if !CheckPermission(domain.RoleViewer, domain.PermViewDashboard) {
		t.Error("RoleViewer should have PermViewDashboard")
	}
	if !CheckPermission(domain.RoleViewer, domain.PermReadKnowledge) {
		t.Error("RoleViewer should have PermReadKnowledge")
	}
	if CheckPermission(domain.RoleViewer, domain.PermCreateIssue) {
		t.Error("RoleViewer should not have PermCreateIssue")
	}
	if CheckPermission(domain.RoleViewer, domain.PermManageUsers) {
		t.Error("RoleViewer should not have PermManageUsers")
	}
}

func TestCheckPermissionCoordinatorCannotManageUsersOrTokens(t *testing.T) {
	if CheckPermission(domain.RoleCoordinator, domain.PermManageUsers) {
		t.Error("RoleCoordinator should not have PermManageUsers")
	}
	if CheckPermission(domain.RoleCoordinator, domain.PermManageTokens) {
		t.Error("RoleCoordinator should not have PermManageTokens")
	}
	if !CheckPermission(domain.RoleCoordinator, domain.PermManageAgents) {
		t.Error("RoleCoordinator should have PermManageAgents")
	}
}

func TestCheckPermissionUnknownRoleFailsClosed(t *testing.T) {
	if CheckPermission(domain.Role("bogus"), domain.PermViewDashboard) {
		t.Error("unknown role should hold no permissions")
	}
}

func TestCheckAgentTokenPermissionNilToken(t *testing.T) {
	if CheckAgentTokenPermission(nil, domain.PermReadKnowledge) {
		t.Error("nil token should grant no permission")
	}
}

func TestCheckAgentTokenPermissionDelegatesToToken(t *testing.T) {
	tok, err := domain.NewAgentToken("agent-1", "ci", []domain.Permission{domain.PermReadKnowledge}, "hash", nil)
	if err != nil {
		t.Fatalf("NewAgentToken() error = %v", err)
	}
	if !CheckAgentTokenPermission(tok, domain.PermReadKnowledge) {
		t.Error("expected token to grant PermReadKnowledge")
	}
	if CheckAgentTokenPermission(tok, domain.PermManageUsers) {
		t.Error("token should not grant PermManageUsers")
	}
}
