package mcpserver

import (
	"sync"
	"time"
)

// ClientInfo is the initialize-time identity a client declares.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Session is the per-connection state the engine keeps from initialize
// onward (spec §4.1 step 2). Grounded on internal/mcp/connections.go's
// SSEConnection, generalized from a transport-bound struct (Writer,
// Flusher, Done channel) to a pure protocol-state record: this engine's
// sessions outlive any one transport connection.
type Session struct {
	ID              string
	ClientInfo      ClientInfo
	Capabilities    map[string]any
	ProtocolVersion string
	AgentID         string // set once agent/register succeeds on this session
	ConnectedAt     time.Time
	LastActivity    time.Time
}

// SessionManager tracks live sessions keyed by id, the way
// ConnectionManager tracks SSEConnections keyed by agent id — generalized
// to key on session id since a session exists before any agent is known.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (m *SessionManager) Create(id string, info ClientInfo, caps map[string]any, version string) *Session {
	s := &Session{
		ID:              id,
		ClientInfo:      info,
		Capabilities:    caps,
		ProtocolVersion: version,
		ConnectedAt:     time.Now(),
		LastActivity:    time.Now(),
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// BindAgent records the agent id a session registered as, so a later
// transport disconnect can deregister it (spec §4.1: "if the session id
// parses as an agent id, the engine deregisters the agent").
func (m *SessionManager) BindAgent(sessionID, agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.AgentID = agentID
	}
}

func (m *SessionManager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivity = time.Now()
	}
}

func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
