package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func (a *API) registerIssueRoutes(api *mux.Router) {
	api.HandleFunc("/issues", a.requirePermission(domain.PermReadKnowledge, a.handleListIssues)).Methods("GET")
	api.HandleFunc("/issues", a.requirePermission(domain.PermCreateIssue, a.requireCSRF(a.handleCreateIssue))).Methods("POST")
	api.HandleFunc("/issues/{id}", a.requirePermission(domain.PermReadKnowledge, a.handleGetIssue)).Methods("GET")
	api.HandleFunc("/issues/{id}/assign", a.requirePermission(domain.PermUpdateIssue, a.requireCSRF(a.handleAssignIssue))).Methods("POST")
	api.HandleFunc("/issues/{id}/status", a.requirePermission(domain.PermUpdateIssue, a.requireCSRF(a.handleSetIssueStatus))).Methods("PUT")
	api.HandleFunc("/issues/{id}/block", a.requirePermission(domain.PermUpdateIssue, a.requireCSRF(a.handleBlockIssue))).Methods("POST")
	api.HandleFunc("/issues/{id}/unblock", a.requirePermission(domain.PermUpdateIssue, a.requireCSRF(a.handleUnblockIssue))).Methods("POST")
	api.HandleFunc("/issues/{id}/tags", a.requirePermission(domain.PermUpdateIssue, a.requireCSRF(a.handleTagIssue))).Methods("POST")
}

func (a *API) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("status") != "":
		issues, err := a.issues.ListByStatus(domain.IssueStatus(q.Get("status")))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, issues)
	case q.Get("agent_id") != "":
		issues, err := a.issues.ListByAgent(q.Get("agent_id"))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, issues)
	default:
		issues, err := a.issues.List()
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, issues)
	}
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (a *API) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	issue, err := a.issues.Create(p.actor(), req.Title, req.Description, domain.IssuePriority(req.Priority))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, issue)
}

func (a *API) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := a.issues.Get(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type assignIssueRequest struct {
	AgentID string `json:"agent_id"`
}

func (a *API) handleAssignIssue(w http.ResponseWriter, r *http.Request) {
	var req assignIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	issue, err := a.issues.Assign(p.actor(), mux.Vars(r)["id"], req.AgentID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type setIssueStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleSetIssueStatus(w http.ResponseWriter, r *http.Request) {
	var req setIssueStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	issue, err := a.issues.SetStatus(p.actor(), mux.Vars(r)["id"], domain.IssueStatus(req.Status))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type blockIssueRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleBlockIssue(w http.ResponseWriter, r *http.Request) {
	var req blockIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	issue, err := a.issues.Block(p.actor(), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type unblockIssueRequest struct {
	Status string `json:"status"`
}

func (a *API) handleUnblockIssue(w http.ResponseWriter, r *http.Request) {
	var req unblockIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	issue, err := a.issues.Unblock(p.actor(), mux.Vars(r)["id"], domain.IssueStatus(req.Status))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type tagIssueRequest struct {
	Tag string `json:"tag"`
}

func (a *API) handleTagIssue(w http.ResponseWriter, r *http.Request) {
	var req tagIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	issue, err := a.issues.AddTag(mux.Vars(r)["id"], req.Tag)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}
