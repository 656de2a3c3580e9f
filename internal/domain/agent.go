package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/stringutils"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/utils"
)

// AgentKind distinguishes orchestrators from task runners (spec §3).
type AgentKind string

const (
	AgentKindCoordinator AgentKind = "Coordinator"
	AgentKindWorker      AgentKind = "Worker"
)

func ParseAgentKind(s string) (AgentKind, bool) {
	switch AgentKind(s) {
	case AgentKindCoordinator, AgentKindWorker:
		return AgentKind(s), true
	default:
		return "", false
	}
}

// AgentStatus is the three-state liveness model this repository uses,
// generalized down from the teacher's six-state AgentStatus
// (Starting/Connected/Working/Idle/Blocked/Disconnected in
// internal/types/types.go) to the spec's Active/Busy/Offline.
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "Active"
	AgentStatusBusy    AgentStatus = "Busy"
	AgentStatusOffline AgentStatus = "Offline"
)

// ConnectionInfo is the connection metadata an agent registers with.
type ConnectionInfo struct {
	Host         string
	Port         int
	Protocol     string
	LastHeartbeat time.Time
	ConnectionID string
}

// Agent is owned exclusively by the agent registry; deregistration is
// permanent (no soft-delete, no resurrection under the same id).
type Agent struct {
	ID           string
	Name         string
	Kind         AgentKind
	Capabilities []string
	Connection   ConnectionInfo
	Status       AgentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAgent validates and constructs an Agent for registration. Status
// starts Active; the caller supplies the initial heartbeat via conn.
func NewAgent(name string, kind AgentKind, capabilities []string, conn ConnectionInfo) (*Agent, error) {
	if stringutils.IsEmpty(name) {
		return nil, NewValidation("agent name must not be empty")
	}
	if !utils.IsValidAgentName(name) {
		return nil, NewValidation("agent name must be 1-64 characters")
	}
	if conn.LastHeartbeat.IsZero() {
		conn.LastHeartbeat = time.Now()
	}
	now := time.Now()
	return &Agent{
		ID:           uuid.NewString(),
		Name:         name,
		Kind:         kind,
		Capabilities: append([]string(nil), capabilities...),
		Connection:   conn,
		Status:       AgentStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Touch records a heartbeat and promotes the agent out of Offline if it had
// lapsed. Busy is set/cleared explicitly by SetBusy/SetIdle, never implied
// by a heartbeat alone.
func (a *Agent) Touch(at time.Time) {
	a.Connection.LastHeartbeat = at
	if a.Status == AgentStatusOffline {
		a.Status = AgentStatusActive
	}
	a.UpdatedAt = at
}

// SetBusy marks the agent as executing work.
func (a *Agent) SetBusy() {
	if a.Status != AgentStatusOffline {
		a.Status = AgentStatusBusy
		a.UpdatedAt = time.Now()
	}
}

// SetIdle returns a Busy agent to Active.
func (a *Agent) SetIdle() {
	if a.Status == AgentStatusBusy {
		a.Status = AgentStatusActive
		a.UpdatedAt = time.Now()
	}
}

// ApplyLivenessRule is the monotonic liveness invariant from spec §8: no
// heartbeat within idleBound of now demotes the agent to Offline. It is the
// only path by which an agent becomes Offline.
func (a *Agent) ApplyLivenessRule(now time.Time, idleBound time.Duration) {
	if a.Status == AgentStatusOffline {
		return
	}
	if now.Sub(a.Connection.LastHeartbeat) >= idleBound {
		a.Status = AgentStatusOffline
		a.UpdatedAt = now
	}
}
