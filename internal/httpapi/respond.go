// Package httpapi is the external interface surface (spec §6): a
// gorilla/mux router exposing /health, /auth, and /api/{agents, issues,
// knowledge, messages, users, tokens}, backed by the internal/service
// tier and gated by internal/security.
//
// Grounded on internal/server/handlers.go's respondJSON/respondError
// helpers and internal/server/server.go's router composition.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a uniform error envelope carrying message as given;
// it does no sanitizing of its own (respondDomainError picks the message
// for domain errors).
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Type", "validation")
	w.WriteHeader(status)
	log.Printf("[HTTP_ERROR] status %d: %s", status, message)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      message,
		"error_code": http.StatusText(status),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// respondDomainError maps a domain.Error's Kind to an HTTP status and
// writes it. The error text reaches the caller for kinds the domain layer
// marks Sanitized and for any other error whose status is below 500; an
// error that maps to a 5xx status is replaced with "internal error".
func respondDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	message := "internal error"
	if de, ok := err.(*domain.Error); ok && de.Sanitized() {
		message = de.Error()
	} else if status < http.StatusInternalServerError {
		message = err.Error()
	}
	respondError(w, status, message)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidParams:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindStateTransition:
		return http.StatusConflict
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	case domain.KindProtocol, domain.KindParsing:
		return http.StatusBadRequest
	case domain.KindExecution, domain.KindStorage, domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
