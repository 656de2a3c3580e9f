package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
)

func (a *API) registerTokenRoutes(api *mux.Router) {
	api.HandleFunc("/tokens", a.requirePermission(domain.PermManageTokens, a.handleListTokens)).Methods("GET")
	api.HandleFunc("/tokens", a.requirePermission(domain.PermManageTokens, a.requireCSRF(a.handleMintToken))).Methods("POST")
	api.HandleFunc("/tokens/{id}", a.requirePermission(domain.PermManageTokens, a.requireCSRF(a.handleRevokeToken))).Methods("DELETE")
}

func (a *API) handleListTokens(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		respondError(w, http.StatusBadRequest, "agent_id query parameter is required")
		return
	}
	tokens, err := a.tokens.ListByAgent(agentID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

type mintTokenRequest struct {
	AgentID        string   `json:"agent_id"`
	Name           string   `json:"name"`
	Permissions    []string `json:"permissions"`
	ExpiresInHours int      `json:"expires_in_hours"`
}

// handleMintToken generates the bearer secret server-side and returns it
// exactly once, alongside the token record; the wire format is
// "<token_id>.<secret>" (spec §3: "only the plaintext bearer value is
// ever returned to the client, at creation time").
func (a *API) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	perms := make([]domain.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, domain.Permission(p))
	}
	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	secret, err := security.GenerateRefreshToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token secret")
		return
	}
	t, err := a.tokens.Mint(req.AgentID, req.Name, perms, secret, expiresAt)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token":  t,
		"bearer": t.ID + "." + secret,
	})
}

func (a *API) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if err := a.tokens.Revoke(p.actor(), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
