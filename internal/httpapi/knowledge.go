package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func (a *API) registerKnowledgeRoutes(api *mux.Router) {
	api.HandleFunc("/knowledge", a.requirePermission(domain.PermReadKnowledge, a.handleListKnowledge)).Methods("GET")
	api.HandleFunc("/knowledge", a.requirePermission(domain.PermCreateKnowledge, a.requireCSRF(a.handleCreateKnowledge))).Methods("POST")
	api.HandleFunc("/knowledge/{id}", a.requirePermission(domain.PermReadKnowledge, a.handleGetKnowledge)).Methods("GET")
	api.HandleFunc("/knowledge/{id}", a.requirePermission(domain.PermCreateKnowledge, a.requireCSRF(a.handleUpdateKnowledge))).Methods("PUT")
	api.HandleFunc("/knowledge/{id}", a.requirePermission(domain.PermCreateKnowledge, a.requireCSRF(a.handleDeleteKnowledge))).Methods("DELETE")
}

func (a *API) handleListKnowledge(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	entries, err := a.knowledge.ListVisibleTo(p.actor(), true)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

type createKnowledgeRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Kind        string `json:"kind"`
	AccessLevel string `json:"access_level"`
}

func (a *API) handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	var req createKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	access := domain.AccessLevel(req.AccessLevel)
	if access == "" {
		access = domain.AccessTeam
	}
	k, err := a.knowledge.Create(req.Title, req.Content, domain.KnowledgeKind(req.Kind), p.actor(), access)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, k)
}

func (a *API) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	k, err := a.knowledge.Get(mux.Vars(r)["id"], p.actor(), true)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, k)
}

type updateKnowledgeRequest struct {
	Content         string `json:"content"`
	ExpectedVersion int    `json:"expected_version"`
}

func (a *API) handleUpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	var req updateKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	k, err := a.knowledge.UpdateContent(p.actor(), mux.Vars(r)["id"], req.Content, req.ExpectedVersion)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, k)
}

func (a *API) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if err := a.knowledge.Delete(mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
