package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/mcpserver"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/messaging"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/orchestration"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/service"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/workflow"
)

type fakeAuditRepo struct {
	mu   sync.Mutex
	rows []*domain.AuditEvent
}

func (r *fakeAuditRepo) Create(e *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, e)
	return nil
}

func (r *fakeAuditRepo) ListByKind(kind domain.AuditKind) ([]*domain.AuditEvent, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByActor(actor string) ([]*domain.AuditEvent, error) { return nil, nil }

func (r *fakeAuditRepo) ListSince(since string) ([]*domain.AuditEvent, error) { return nil, nil }

func newTestAPI(t *testing.T) *API {
	t.Helper()
	hasher := security.NewPasswordHasher()
	auditor := security.NewAuditor(&fakeAuditRepo{})

	users := service.NewUserService(newFakeUserRepo(), hasher, auditor)
	tokens := service.NewTokenService(newFakeTokenRepo(), hasher, auditor)
	agents := service.NewAgentService(newFakeAgentRepo(), auditor, 0)
	issues := service.NewIssueService(newFakeIssueRepo(), agents, auditor)
	knowledge := service.NewKnowledgeService(newFakeKnowledgeRepo(), auditor)
	messages := service.NewMessageService(newFakeMessageRepo(), auditor)
	coordinator := messaging.NewCoordinator(messages, messaging.NewBus())
	driver := workflow.NewDriver(orchestration.NewExecutor("true"))
	mcp := mcpserver.NewServer(agents, issues, knowledge, "test")

	return NewAPI(Services{
		Users:     users,
		Tokens:    tokens,
		Agents:    agents,
		Issues:    issues,
		Knowledge: knowledge,
		Messages:  coordinator,
		Workflows: driver,
		MCP:       mcp,
	}, Security{
		JWT:       security.NewJWTManager([]byte("test-secret"), "vibe-ensemble-test"),
		Passwords: hasher,
		CSRF:      security.NewCSRFStore(),
		Auditor:   auditor,
	})
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token, csrf string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func registerAndLogin(t *testing.T, srv *httptest.Server, role domain.Role) authResponse {
	t.Helper()
	resp := doJSON(t, srv, "POST", "/auth/register", "", "", registerRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2pass", Role: string(role),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, "POST", "/auth/login", "", "", loginRequest{Username: "alice", Password: "hunter2pass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestLoginFlowIssuesUsableSession(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleAdmin)
	if session.AccessToken == "" || session.CSRFToken == "" {
		t.Fatal("login response missing access token or csrf token")
	}

	resp := doJSON(t, srv, "GET", "/api/agents", session.AccessToken, "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/agents status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateIssueRequiresCSRFToken(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleAdmin)

	resp := doJSON(t, srv, "POST", "/api/issues", session.AccessToken, "", createIssueRequest{
		Title: "fix bug", Description: "steps to reproduce", Priority: string(domain.IssuePriorityHigh),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status without CSRF token = %d, want 403", resp.StatusCode)
	}

	resp2 := doJSON(t, srv, "POST", "/api/issues", session.AccessToken, session.CSRFToken, createIssueRequest{
		Title: "fix bug", Description: "steps to reproduce", Priority: string(domain.IssuePriorityHigh),
	})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("status with CSRF token = %d, want 201", resp2.StatusCode)
	}

	var issue domain.Issue
	if err := json.NewDecoder(resp2.Body).Decode(&issue); err != nil {
		t.Fatalf("decode issue: %v", err)
	}
	if issue.Status != domain.IssueStatusOpen {
		t.Errorf("issue.Status = %s, want Open", issue.Status)
	}

	// A second use of the same (now-consumed) CSRF token must fail.
	resp3 := doJSON(t, srv, "POST", "/api/issues", session.AccessToken, session.CSRFToken, createIssueRequest{
		Title: "second", Description: "another issue", Priority: string(domain.IssuePriorityLow),
	})
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusForbidden {
		t.Fatalf("status reusing a consumed CSRF token = %d, want 403", resp3.StatusCode)
	}
}

func TestViewerRoleCannotCreateIssue(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleViewer)
	resp := doJSON(t, srv, "POST", "/api/issues", session.AccessToken, session.CSRFToken, createIssueRequest{
		Title: "fix bug", Description: "steps to reproduce", Priority: string(domain.IssuePriorityHigh),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("viewer create-issue status = %d, want 403", resp.StatusCode)
	}
}

func TestRefreshTokenRotatesAndIsSingleUse(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleAdmin)

	resp := doJSON(t, srv, "POST", "/auth/refresh", "", "", refreshRequest{RefreshToken: session.RefreshToken})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	var second authResponse
	if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if second.AccessToken == "" {
		t.Fatal("refresh response missing access token")
	}

	resp2 := doJSON(t, srv, "POST", "/auth/refresh", "", "", refreshRequest{RefreshToken: session.RefreshToken})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reusing a consumed refresh token status = %d, want 401", resp2.StatusCode)
	}
}

func TestMissingBearerTokenRejected(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	resp := doJSON(t, srv, "GET", "/api/agents", "", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without bearer token = %d, want 401", resp.StatusCode)
	}
}

func TestAgentBearerTokenAuthenticates(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleAdmin)

	mintResp := doJSON(t, srv, "POST", "/api/tokens", session.AccessToken, session.CSRFToken, mintTokenRequest{
		AgentID:     "agent-1",
		Name:        "worker token",
		Permissions: []string{string(domain.PermCreateIssue), string(domain.PermReadKnowledge)},
	})
	defer mintResp.Body.Close()
	if mintResp.StatusCode != http.StatusCreated {
		t.Fatalf("mint token status = %d, want 201", mintResp.StatusCode)
	}
	var minted struct {
		Bearer string `json:"bearer"`
	}
	if err := json.NewDecoder(mintResp.Body).Decode(&minted); err != nil {
		t.Fatalf("decode mint response: %v", err)
	}

	resp := doJSON(t, srv, "POST", "/api/issues", minted.Bearer, "", createIssueRequest{
		Title: "from agent", Description: "agent-created issue", Priority: string(domain.IssuePriorityMedium),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("agent-token create-issue status = %d, want 201 (agent tokens are not subject to CSRF)", resp.StatusCode)
	}
}

func TestRunWorkflowExecutesStepsAndReportsCompletion(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()

	session := registerAndLogin(t, srv, domain.RoleAdmin)

	resp := doJSON(t, srv, "POST", "/api/workflows", session.AccessToken, session.CSRFToken, runWorkflowRequest{
		ProjectPath: "/tmp",
		WorkspaceID: "ws-1",
		Steps: []stepRequest{
			{ID: "step-1", Name: "first step", Order: 1, TimeoutSecs: 5},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run workflow status = %d, want 200", resp.StatusCode)
	}
	var result workflow.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode workflow result: %v", err)
	}
	if result.WorkflowID == "" {
		t.Error("expected a non-empty workflow id")
	}
}
