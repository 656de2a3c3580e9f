package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func (a *API) registerUserRoutes(api *mux.Router) {
	api.HandleFunc("/users", a.requirePermission(domain.PermManageUsers, a.handleListUsers)).Methods("GET")
	api.HandleFunc("/users/{id}", a.requirePermission(domain.PermManageUsers, a.handleGetUser)).Methods("GET")
	api.HandleFunc("/users/{id}/lock", a.requirePermission(domain.PermManageUsers, a.requireCSRF(a.handleLockUser))).Methods("POST")
	api.HandleFunc("/users/{id}/unlock", a.requirePermission(domain.PermManageUsers, a.requireCSRF(a.handleUnlockUser))).Methods("POST")
	api.HandleFunc("/users/{id}/deactivate", a.requirePermission(domain.PermManageUsers, a.requireCSRF(a.handleDeactivateUser))).Methods("POST")
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.Get(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (a *API) handleLockUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.Lock(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (a *API) handleUnlockUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.Unlock(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.Deactivate(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}
