package httpapi

import (
	"io"
	"net/http"
)

// handleMCP is the JSON-RPC/MCP protocol engine's transport binding: one
// HTTP request carries one JSON-RPC message in, one message (or no body,
// for a notification) out. Grounded on internal/mcp/server.go's stdio
// read-a-line/write-a-line loop, adapted from stdio framing to HTTP
// request/response framing since the coordination server is long-running
// and multi-agent rather than one child process per session.
func (a *API) handleMCP(w http.ResponseWriter, r *http.Request) {
	if a.mcp == nil {
		respondError(w, http.StatusServiceUnavailable, "mcp engine not configured")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	resp, hasResponse := a.mcp.HandleMessage(body)
	if !hasResponse {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}
