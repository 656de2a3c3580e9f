package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func (a *API) registerAgentRoutes(api *mux.Router) {
	api.HandleFunc("/agents", a.requirePermission(domain.PermViewDashboard, a.handleListAgents)).Methods("GET")
	api.HandleFunc("/agents", a.requirePermission(domain.PermManageAgents, a.requireCSRF(a.handleRegisterAgent))).Methods("POST")
	api.HandleFunc("/agents/{id}", a.requirePermission(domain.PermViewDashboard, a.handleGetAgent)).Methods("GET")
	api.HandleFunc("/agents/{id}", a.requirePermission(domain.PermManageAgents, a.requireCSRF(a.handleDeregisterAgent))).Methods("DELETE")
	api.HandleFunc("/agents/{id}/heartbeat", a.requirePermission(domain.PermManageAgents, a.handleAgentHeartbeat)).Methods("POST")
	api.HandleFunc("/agents/{id}/busy", a.requirePermission(domain.PermManageAgents, a.handleAgentSetBusy)).Methods("POST")
	api.HandleFunc("/agents/{id}/idle", a.requirePermission(domain.PermManageAgents, a.handleAgentSetIdle)).Methods("POST")
}

func (a *API) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		agents, err := a.agents.ListByStatus(domain.AgentStatus(status))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, agents)
		return
	}
	agents, err := a.agents.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

type registerAgentRequest struct {
	Name         string                `json:"name"`
	Kind         string                `json:"kind"`
	Capabilities []string              `json:"capabilities"`
	Connection   domain.ConnectionInfo `json:"connection"`
}

func (a *API) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, ok := domain.ParseAgentKind(req.Kind)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown agent kind")
		return
	}
	agent, err := a.agents.Register(req.Name, kind, req.Capabilities, req.Connection)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (a *API) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := a.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (a *API) handleDeregisterAgent(w http.ResponseWriter, r *http.Request) {
	if err := a.agents.Deregister(mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAgentHeartbeat(w http.ResponseWriter, r *http.Request) {
	agent, err := a.agents.Heartbeat(mux.Vars(r)["id"], time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (a *API) handleAgentSetBusy(w http.ResponseWriter, r *http.Request) {
	agent, err := a.agents.SetBusy(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (a *API) handleAgentSetIdle(w http.ResponseWriter, r *http.Request) {
	agent, err := a.agents.SetIdle(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}
