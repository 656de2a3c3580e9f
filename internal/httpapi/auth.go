package httpapi

import (
	"net/http"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	CSRFToken    string `json:"csrf_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// handleLogin verifies credentials and mints a fresh access/refresh/CSRF
// triple (spec §4.5-§4.6). Grounded on internal/server/handlers.go's
// request-decode-then-respondJSON shape.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := a.users.GetByUsername(req.Username)
	if err != nil {
		a.users.RecordAuthentication(req.Username, false)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	hash, err := a.users.PasswordHash(u.ID)
	if err != nil || !a.passwds.Verify(req.Password, hash) || !u.CanAuthenticate() {
		a.users.RecordAuthentication(u.ID, false)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := a.issueSession(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	a.users.RecordAuthentication(u.ID, true)
	respondJSON(w, http.StatusOK, resp)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleViewer
	}
	u, err := a.users.Register(req.Username, req.Email, role, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       u.ID,
		"username": u.Username,
		"role":     u.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, ok := a.refresh.consume(security.HashRefreshToken(req.RefreshToken))
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	u, err := a.users.Get(userID)
	if err != nil || !u.CanAuthenticate() {
		respondError(w, http.StatusUnauthorized, "account no longer eligible")
		return
	}
	resp, err := a.issueSession(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decodeJSON(r, &req)
	if req.RefreshToken != "" {
		a.refresh.consume(security.HashRefreshToken(req.RefreshToken))
	}
	p := principalFrom(r.Context())
	if p != nil && p.User != nil {
		a.csrf.Forget(p.User.ID)
		a.refresh.revokeAllFor(p.User.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) issueSession(u *domain.User) (authResponse, error) {
	access, err := a.jwt.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return authResponse{}, err
	}
	refresh, err := security.GenerateRefreshToken()
	if err != nil {
		return authResponse{}, err
	}
	a.refresh.issue(security.HashRefreshToken(refresh), u.ID, time.Now().Add(security.RefreshTokenDuration))

	csrfToken, err := a.csrf.Issue(u.ID)
	if err != nil {
		return authResponse{}, err
	}

	var resp authResponse
	resp.AccessToken = access
	resp.RefreshToken = refresh
	resp.CSRFToken = csrfToken
	resp.ExpiresIn = int(security.AccessTokenDuration.Seconds())
	resp.User.ID = u.ID
	resp.User.Username = u.Username
	resp.User.Role = string(u.Role)
	return resp, nil
}
