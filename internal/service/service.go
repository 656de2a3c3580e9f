// Package service holds the cross-entity invariants and audit emission
// that sit between the wire protocol (internal/mcpserver, internal/httpapi)
// and the per-entity repositories in internal/storage (spec §4.4-§4.5).
// Grounded on internal/captain/captain.go's orchestration-layer shape
// (one struct owning the domain stores, methods that validate, mutate,
// then report) and internal/handlers/coordination.go for the thin
// handler-facing method signatures.
package service

import (
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// Recorder is the audit sink every service writes through. Defined here
// rather than importing internal/security directly, so internal/security
// can depend on internal/service without a cycle; internal/security's
// Auditor satisfies this interface.
type Recorder interface {
	Record(event *domain.AuditEvent) error
}

// noopRecorder discards events; used by tests and by callers that don't
// wire a real Recorder.
type noopRecorder struct{}

func (noopRecorder) Record(*domain.AuditEvent) error { return nil }

// NoopRecorder is exported for tests that construct services without a
// full audit stack.
var NoopRecorder Recorder = noopRecorder{}

// formatTimeCompat mirrors internal/storage's RFC3339Nano formatting so the
// optimistic-lock token a service passes back matches what the repository
// stored, without importing internal/storage's unexported convert.go.
func formatTimeCompat(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func auditOrWarn(rec Recorder, event *domain.AuditEvent) {
	if rec == nil {
		return
	}
	if err := rec.Record(event); err != nil {
		fmt.Printf("Warning: failed to record audit event %s: %v\n", event.Kind, err)
	}
}
