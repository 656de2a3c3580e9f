package mcpserver

import (
	"encoding/json"
	"log"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

// handleInitialize implements spec §4.1's three-step initialization
// protocol: create a session keyed by the request id, warn (not fail) on
// a protocol version mismatch, and return this server's capabilities.
func (s *Server) handleInitialize(req *Request) Response {
	var p initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid initialize params")
		}
	}

	if p.ProtocolVersion != "" && p.ProtocolVersion != SupportedProtocolVersion {
		log.Printf("mcpserver: client requested protocol version %q, server speaks %q", p.ProtocolVersion, SupportedProtocolVersion)
	}

	sessionID := idToString(req.ID)
	s.sessions.Create(sessionID, p.ClientInfo, p.Capabilities, p.ProtocolVersion)

	return resultResponse(req.ID, map[string]any{
		"protocolVersion": SupportedProtocolVersion,
		"serverInfo": map[string]string{
			"name":    serverName,
			"version": s.serverVersion,
		},
		"capabilities": map[string]any{
			"tools":     map[string]bool{"listChanged": false},
			"resources": map[string]bool{"listChanged": false},
			"prompts":   map[string]bool{"listChanged": false},
		},
		"instructions": "Register with agent/register, then use issue/create, issue/list and knowledge/query to coordinate work.",
	})
}

type agentRegisterParams struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Capabilities []string `json:"capabilities"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Protocol     string   `json:"protocol"`
}

// handleAgentRegister implements spec §4.1's agent registration: a
// case-sensitive Coordinator/Worker kind, delegated to the agent service
// when installed, with a fallback synthesized id otherwise.
func (s *Server) handleAgentRegister(req *Request) Response {
	var p agentRegisterParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid agent/register params")
		}
	}
	if p.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "name is required")
	}
	kind, ok := domain.ParseAgentKind(p.Kind)
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "kind must be Coordinator or Worker")
	}

	if s.agents == nil {
		return resultResponse(req.ID, map[string]any{
			"agent_id":  idToString(req.ID),
			"status":    "registered_fallback",
			"resources": authorizedResourceURIs(),
		})
	}

	conn := domain.ConnectionInfo{Host: p.Host, Port: p.Port, Protocol: p.Protocol}
	agent, err := s.agents.Register(p.Name, kind, p.Capabilities, conn)
	if err != nil {
		return errorResponse(req.ID, CodeAgentRegistrationFailed, agentRegistrationErrorMessage(err))
	}

	s.sessions.BindAgent(idToString(req.ID), agent.ID)

	return resultResponse(req.ID, map[string]any{
		"agent_id":  agent.ID,
		"status":    string(agent.Status),
		"resources": authorizedResourceURIs(),
	})
}

func agentRegistrationErrorMessage(err error) string {
	rpcErr := rpcErrorFor(err)
	return rpcErr.Message
}

type agentStatusParams struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleAgentStatus(req *Request) Response {
	var p agentStatusParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid agent/status params")
		}
	}
	if p.AgentID == "" {
		return errorResponse(req.ID, CodeInvalidParams, "agent_id is required")
	}
	if s.agents == nil {
		return errorResponse(req.ID, CodeNotFound, "no agent service installed")
	}

	agent, err := s.agents.Get(p.AgentID)
	if err != nil {
		rpcErr := rpcErrorFor(err)
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}

	return resultResponse(req.ID, map[string]any{
		"agent_id":       agent.ID,
		"status":         string(agent.Status),
		"kind":           string(agent.Kind),
		"last_heartbeat": agent.Connection.LastHeartbeat,
	})
}

type issueCreateParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (s *Server) handleIssueCreate(req *Request) Response {
	var p issueCreateParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid issue/create params")
		}
	}
	if s.issues == nil {
		return errorResponse(req.ID, CodeNotFound, "no issue service installed")
	}

	priority := domain.IssuePriorityMedium
	if p.Priority != "" {
		priority = domain.IssuePriority(p.Priority)
	}

	actor := "mcp"
	if sess, ok := s.sessions.Get(idToString(req.ID)); ok && sess.AgentID != "" {
		actor = sess.AgentID
	}

	issue, err := s.issues.Create(actor, p.Title, p.Description, priority)
	if err != nil {
		rpcErr := rpcErrorFor(err)
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}

	return resultResponse(req.ID, map[string]any{
		"issue_id": issue.ID,
		"status":   string(issue.Status),
		"priority": string(issue.Priority),
	})
}

type issueListParams struct {
	Status string `json:"status"`
}

func (s *Server) handleIssueList(req *Request) Response {
	var p issueListParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid issue/list params")
		}
	}
	if s.issues == nil {
		return errorResponse(req.ID, CodeNotFound, "no issue service installed")
	}

	var (
		issues []*domain.Issue
		err    error
	)
	if p.Status != "" {
		issues, err = s.issues.ListByStatus(domain.IssueStatus(p.Status))
	} else {
		issues, err = s.issues.List()
	}
	if err != nil {
		rpcErr := rpcErrorFor(err)
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}

	out := make([]map[string]any, 0, len(issues))
	for _, i := range issues {
		out = append(out, map[string]any{
			"issue_id": i.ID,
			"title":    i.Title,
			"status":   string(i.Status),
			"priority": string(i.Priority),
		})
	}
	return resultResponse(req.ID, map[string]any{"issues": out})
}

type knowledgeQueryParams struct {
	Kind string `json:"kind"`
	Tag  string `json:"tag"`
}

// handleKnowledgeQuery lists knowledge visible to the calling session's
// bound agent; an unbound session (never registered) sees only Public
// entries (spec §3's VisibleTo rule).
func (s *Server) handleKnowledgeQuery(req *Request) Response {
	var p knowledgeQueryParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid knowledge/query params")
		}
	}
	if s.knowledge == nil {
		return errorResponse(req.ID, CodeNotFound, "no knowledge service installed")
	}

	viewerID, viewerKnown := "", false
	if sess, ok := s.sessions.Get(idToString(req.ID)); ok && sess.AgentID != "" {
		viewerID, viewerKnown = sess.AgentID, true
	}

	entries, err := s.knowledge.ListVisibleTo(viewerID, viewerKnown)
	if err != nil {
		rpcErr := rpcErrorFor(err)
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}

	out := make([]map[string]any, 0, len(entries))
	for _, k := range entries {
		if p.Kind != "" && string(k.Kind) != p.Kind {
			continue
		}
		if p.Tag != "" && !containsTag(k.Tags, p.Tag) {
			continue
		}
		out = append(out, map[string]any{
			"knowledge_id": k.ID,
			"title":        k.Title,
			"kind":         string(k.Kind),
			"access_level": string(k.AccessLevel),
		})
	}
	return resultResponse(req.ID, map[string]any{"knowledge": out})
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
