package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func (a *API) registerMessageRoutes(api *mux.Router) {
	api.HandleFunc("/messages", a.requirePermission(domain.PermSendMessage, a.handleListMessages)).Methods("GET")
	api.HandleFunc("/messages", a.requirePermission(domain.PermSendMessage, a.requireCSRF(a.handleSendMessage))).Methods("POST")
}

// handleListMessages returns the undelivered messages addressed to the
// caller, for a reconnecting agent session to drain (spec §3
// store-and-forward).
func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	pending, err := a.messages.Pending(p.actor())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Priority  string `json:"priority"`
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := principalFrom(r.Context())
	priority := domain.MessagePriority(req.Priority)
	if priority == "" {
		priority = domain.MessagePriorityNormal
	}

	var (
		m   *domain.Message
		err error
	)
	if req.Recipient == "" {
		m, err = a.messages.SendBroadcast(p.actor(), req.Content, priority)
	} else {
		m, err = a.messages.SendDirect(p.actor(), req.Recipient, req.Content, priority)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}
