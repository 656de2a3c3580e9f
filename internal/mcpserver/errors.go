package mcpserver

import (
	"github.com/google/uuid"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// rpcErrorFor maps a domain error to a wire-safe RPCError (spec §7): a
// sanitized Kind reaches the caller verbatim, everything else is replaced
// with a generic message plus a correlation id a server operator can grep
// logs for.
func rpcErrorFor(err error) *RPCError {
	de, ok := err.(*domain.Error)
	if !ok {
		return &RPCError{Code: CodeInternalError, Message: "internal error", Data: correlationID()}
	}

	code := CodeInternalError
	switch de.Kind {
	case domain.KindValidation, domain.KindInvalidParams:
		code = CodeInvalidParams
	case domain.KindNotFound:
		code = CodeNotFound
	case domain.KindConflict:
		code = CodeConflict
	case domain.KindStateTransition:
		code = CodeStateTransition
	case domain.KindPermission:
		code = CodePermissionDenied
	}

	if de.Sanitized() {
		return &RPCError{Code: code, Message: de.Message}
	}
	return &RPCError{Code: code, Message: "internal error", Data: correlationID()}
}

func correlationID() string {
	return uuid.NewString()
}
