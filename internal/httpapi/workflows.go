package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/orchestration"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/workflow"
)

// registerWorkflowRoutes wires the orchestration engine (spec §4.2-§4.3)
// into the HTTP surface: a run is triggered synchronously and its
// aggregate Result returned, matching internal/server/handlers.go's
// request/response round trip rather than a fire-and-forget job queue.
func (a *API) registerWorkflowRoutes(api *mux.Router) {
	api.HandleFunc("/workflows", a.requirePermission(domain.PermManageAgents, a.requireCSRF(a.handleRunWorkflow))).Methods("POST")
	api.HandleFunc("/workflows", a.requirePermission(domain.PermViewDashboard, a.handleListActiveWorkflows)).Methods("GET")
	api.HandleFunc("/workflows/{id}", a.requirePermission(domain.PermViewDashboard, a.handleGetWorkflowStatus)).Methods("GET")
	api.HandleFunc("/workflows/{id}/cancel", a.requirePermission(domain.PermManageAgents, a.requireCSRF(a.handleCancelWorkflow))).Methods("POST")
}

type stepRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	TimeoutSecs int    `json:"timeout_seconds"`
	MaxRetries  int    `json:"max_retries"`
	RetryDelay  int    `json:"retry_delay_seconds"`
}

type runWorkflowRequest struct {
	ProjectPath       string            `json:"project_path"`
	WorkspaceID       string            `json:"workspace_id"`
	WorkspaceName     string            `json:"workspace_name"`
	Steps             []stepRequest     `json:"steps"`
	Variables         map[string]string `json:"variables"`
	TimeoutSeconds    int               `json:"timeout_seconds"`
	ContinueOnFailure bool              `json:"continue_on_failure"`
}

// handleRunWorkflow runs every step to completion before responding; the
// driver itself still tracks the run under workflows/{id} for the
// duration (spec §4.3's cancellable, in-flight bookkeeping), but this
// handler blocks until Execute returns rather than polling.
func (a *API) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req runWorkflowRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Steps) == 0 {
		respondError(w, http.StatusBadRequest, "steps must not be empty")
		return
	}

	steps := make([]workflow.Step, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, workflow.Step{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Order:       s.Order,
			StepTimeout: time.Duration(s.TimeoutSecs) * time.Second,
			Retry: workflow.RetryPolicy{
				MaxRetries: s.MaxRetries,
				RetryDelay: time.Duration(s.RetryDelay) * time.Second,
			},
		})
	}

	ws := orchestration.WorkspaceConfig{
		ProjectPath:   req.ProjectPath,
		WorkspaceID:   req.WorkspaceID,
		WorkspaceName: req.WorkspaceName,
	}
	cfg := workflow.Config{
		Timeout:           time.Duration(req.TimeoutSeconds) * time.Second,
		ContinueOnFailure: req.ContinueOnFailure,
	}

	result := a.workflows.Execute(context.Background(), ws, steps, req.Variables, cfg)
	respondJSON(w, http.StatusOK, result)
}

func (a *API) handleListActiveWorkflows(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.workflows.ListActive())
}

func (a *API) handleGetWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := a.workflows.GetStatus(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "workflow not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": mux.Vars(r)["id"], "status": string(status)})
}

func (a *API) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := a.workflows.Cancel(mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
