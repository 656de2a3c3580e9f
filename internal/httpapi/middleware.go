package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/stringutils"
)

type ctxKey int

const (
	ctxPrincipal ctxKey = iota
)

// principal is whichever of the two bearer credential kinds the spec's
// access control plane recognizes (spec §3, §4.6): a human user session
// or an agent's minted token. Exactly one of User/AgentToken is set.
type principal struct {
	User       *domain.User
	AgentToken *domain.AgentToken
}

func (p *principal) hasPermission(perm domain.Permission) bool {
	if p == nil {
		return false
	}
	if p.User != nil {
		return security.CheckPermission(p.User.Role, perm)
	}
	return security.CheckAgentTokenPermission(p.AgentToken, perm)
}

func (p *principal) actor() string {
	if p == nil {
		return ""
	}
	if p.User != nil {
		return p.User.ID
	}
	if p.AgentToken != nil {
		return p.AgentToken.AgentID
	}
	return ""
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(ctxPrincipal).(*principal)
	return p
}

// authMiddleware accepts either a JWT access token or an agent bearer
// token in the Authorization header, resolving it to a principal stored
// on the request context. Grounded on internal/server's bearer-token
// extraction, generalized from single-scheme to the spec's two credential
// kinds.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		// A bearer token never legitimately contains whitespace; strip any
		// that crept in from a copy-paste or a proxy rewrite rather than
		// rejecting it outright.
		raw := stringutils.TrimAll(strings.TrimPrefix(header, prefix))

		if claims, err := a.jwt.ValidateAccessToken(raw); err == nil {
			u, err := a.users.Get(claims.UserID)
			if err != nil || !u.CanAuthenticate() {
				respondError(w, http.StatusUnauthorized, "session no longer valid")
				return
			}
			ctx := context.WithValue(r.Context(), ctxPrincipal, &principal{User: u})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if t, ok := a.resolveAgentToken(raw); ok {
			ctx := context.WithValue(r.Context(), ctxPrincipal, &principal{AgentToken: t})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		respondError(w, http.StatusUnauthorized, "invalid or expired bearer token")
	})
}

// requirePermission rejects the request before the handler runs unless
// the resolved principal holds perm (spec §4.6 permission matrix).
func (a *API) requirePermission(perm domain.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		if !p.hasPermission(perm) {
			a.auditDenied(p, r, perm)
			respondError(w, http.StatusForbidden, "permission denied")
			return
		}
		next(w, r)
	}
}

func (a *API) auditDenied(p *principal, r *http.Request, perm domain.Permission) {
	evt := domain.NewAuditEvent(domain.AuditPermissionDenied, domain.SeverityMedium,
		p.actor(), "http", r.URL.Path, string(perm), domain.AuditFailure)
	if err := a.auditor.Record(evt); err != nil {
		a.log.Printf("failed to record permission-denied audit event: %v", err)
	}
}

// requireCSRF rejects state-changing requests unless they carry a valid,
// single-use CSRF token for the caller's session (spec §4.5). Only
// enforced for user-session principals; agent bearer tokens are not
// subject to CSRF since they are never presented by a browser.
func (a *API) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		if p == nil || p.User == nil {
			next(w, r)
			return
		}
		token := r.Header.Get("X-CSRF-Token")
		if token == "" || !a.csrf.Consume(p.User.ID, token) {
			a.auditCSRFFailure(p, r)
			respondError(w, http.StatusForbidden, "missing or invalid csrf token")
			return
		}
		next(w, r)
	}
}

func (a *API) auditCSRFFailure(p *principal, r *http.Request) {
	evt := domain.NewAuditEvent(domain.AuditSecurityViolation, domain.SeverityHigh,
		p.actor(), "http", r.URL.Path, "csrf", domain.AuditFailure)
	if err := a.auditor.Record(evt); err != nil {
		a.log.Printf("failed to record csrf-failure audit event: %v", err)
	}
}
