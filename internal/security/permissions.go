package security

import "github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"

// RoleMatrix maps each domain.Role to the set of permissions it holds by
// default (spec §4.6). Grounded on the role/status binding shape of
// internal/memory/agent_control.go's AgentControl (a fixed set of named
// fields per agent), generalized into a role -> permission-set table.
var RoleMatrix = map[domain.Role]map[domain.Permission]bool{
	domain.RoleAdmin: {
		domain.PermViewDashboard:   true,
		domain.PermCreateIssue:     true,
		domain.PermUpdateIssue:     true,
		domain.PermDeleteIssue:     true,
		domain.PermCreateKnowledge: true,
		domain.PermReadKnowledge:   true,
		domain.PermSendMessage:     true,
		domain.PermManageAgents:    true,
		domain.PermManageUsers:     true,
		domain.PermManageTokens:    true,
		domain.PermViewAudit:       true,
	},
	domain.RoleCoordinator: {
		domain.PermViewDashboard:   true,
		domain.PermCreateIssue:     true,
		domain.PermUpdateIssue:     true,
		domain.PermDeleteIssue:     true,
		domain.PermCreateKnowledge: true,
		domain.PermReadKnowledge:   true,
		domain.PermSendMessage:     true,
		domain.PermManageAgents:    true,
		domain.PermViewAudit:       true,
	},
	domain.RoleAgent: {
		domain.PermViewDashboard:   true,
		domain.PermCreateIssue:     true,
		domain.PermUpdateIssue:     true,
		domain.PermCreateKnowledge: true,
		domain.PermReadKnowledge:   true,
		domain.PermSendMessage:     true,
	},
	domain.RoleViewer: {
		domain.PermViewDashboard: true,
		domain.PermReadKnowledge: true,
	},
}

// CheckPermission reports whether role grants p. Unknown roles hold no
// permissions — fail closed.
func CheckPermission(role domain.Role, p domain.Permission) bool {
	return RoleMatrix[role][p]
}

// CheckAgentTokenPermission reports whether an agent bearer token grants p,
// consulting the token itself rather than a role (agent tokens carry an
// explicit permission subset, never a role — spec §3, §4.6).
func CheckAgentTokenPermission(t *domain.AgentToken, p domain.Permission) bool {
	if t == nil {
		return false
	}
	return t.HasPermission(p)
}
