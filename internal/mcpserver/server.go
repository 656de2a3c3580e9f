package mcpserver

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/service"
)

// SupportedProtocolVersion is the MCP protocol version this engine
// declares in initialize responses (spec §4.1 step 3).
const SupportedProtocolVersion = "2024-11-05"

const serverName = "vibe-ensemble"

// Server is the JSON-RPC 2.0 engine: it owns session state and dispatches
// each inbound method to a handler, delegating coordination work to the
// service layer. Grounded on internal/mcp/server.go's Server, generalized
// from a single ToolRegistry dependency to the three coordination services
// the fixed dispatch table's extensions touch.
type Server struct {
	sessions      *SessionManager
	agents        *service.AgentService
	issues        *service.IssueService
	knowledge     *service.KnowledgeService
	serverVersion string
}

func NewServer(agents *service.AgentService, issues *service.IssueService, knowledge *service.KnowledgeService, serverVersion string) *Server {
	return &Server{
		sessions:      NewSessionManager(),
		agents:        agents,
		issues:        issues,
		knowledge:     knowledge,
		serverVersion: serverVersion,
	}
}

// HandleMessage parses and dispatches a single raw JSON-RPC message. It
// returns the marshaled response and true, or nil and false for
// notifications (no response is ever sent for those, per spec §4.1).
func (s *Server) HandleMessage(raw []byte) ([]byte, bool) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		resp := errorResponse(nil, CodeParseError, "parse error")
		b, _ := json.Marshal(resp)
		return b, true
	}

	resp, hasResponse := s.Dispatch(&req)
	if !hasResponse {
		return nil, false
	}
	b, _ := json.Marshal(resp)
	return b, true
}

// Dispatch routes req to its handler. A request with a nil ID is a
// notification and never produces a response.
func (s *Server) Dispatch(req *Request) (Response, bool) {
	if req.ID == nil {
		s.dispatchNotification(req)
		return Response{}, false
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req), true
	case "ping":
		return resultResponse(req.ID, map[string]any{}), true
	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": toolsListResult()}), true
	case "resources/list":
		return resultResponse(req.ID, map[string]any{"resources": s.resourcesListResult()}), true
	case "prompts/list":
		return resultResponse(req.ID, map[string]any{"prompts": []any{}}), true
	case "agent/register":
		return s.handleAgentRegister(req), true
	case "agent/status":
		return s.handleAgentStatus(req), true
	case "issue/create":
		return s.handleIssueCreate(req), true
	case "issue/list":
		return s.handleIssueList(req), true
	case "knowledge/query":
		return s.handleKnowledgeQuery(req), true
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method), true
	}
}

func (s *Server) dispatchNotification(req *Request) {
	// Notifications never produce a response; the only one this engine
	// currently recognizes is the initialized confirmation, which is
	// informational and needs no state change.
	log.Printf("mcpserver: notification %s (ignored)", req.Method)
}

func idToString(id any) string {
	if id == nil {
		return uuid.NewString()
	}
	switch v := id.(type) {
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// UpdateAgentHeartbeat records liveness for id (spec §4.1, out of band of
// the RPC dispatch table).
func (s *Server) UpdateAgentHeartbeat(agentID string) error {
	if s.agents == nil {
		return nil
	}
	_, err := s.agents.Heartbeat(agentID, time.Now())
	return err
}

// CleanupStale demotes agents whose last heartbeat exceeds the idle bound
// the agent service was constructed with, returning the count demoted. The
// bound itself is fixed at construction (spec §4.5 configuration, not a
// per-call override) rather than accepted here as max_idle_seconds.
func (s *Server) CleanupStale() (int, error) {
	if s.agents == nil {
		return 0, nil
	}
	return s.agents.SweepLiveness(time.Now())
}

// Disconnect handles a transport-level disconnect for sessionID: if the
// session registered an agent, that agent is deregistered (spec §4.1).
func (s *Server) Disconnect(sessionID string) {
	sess, ok := s.sessions.Get(sessionID)
	s.sessions.Remove(sessionID)
	if !ok || sess.AgentID == "" || s.agents == nil {
		return
	}
	if err := s.agents.Deregister(sess.AgentID); err != nil {
		log.Printf("mcpserver: deregistering agent %s on disconnect: %v", sess.AgentID, err)
	}
}

func (s *Server) SessionCount() int {
	return s.sessions.Count()
}
