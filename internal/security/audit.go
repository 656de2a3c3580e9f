package security

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// AuditRepository is the storage surface Auditor writes through; it is
// the same shape as storage.AuditRepository but declared locally so
// security never imports storage's concrete type.
type AuditRepository interface {
	Create(e *domain.AuditEvent) error
	ListByKind(kind domain.AuditKind) ([]*domain.AuditEvent, error)
	ListByActor(actor string) ([]*domain.AuditEvent, error)
	ListSince(since string) ([]*domain.AuditEvent, error)
}

// Sink receives every event Auditor successfully persists, so it can be
// fanned out beyond the audit store (e.g. to external alert channels).
// Auditor never imports the notifications package directly; main.go
// wires a notifications.Router in behind this interface since Router's
// Route method already has this exact shape.
type Sink interface {
	Route(event *domain.AuditEvent)
}

// Auditor is the append-only writer service.Recorder is implemented
// against. Grounded on internal/events/store.go's SQLiteStore: a thin
// wrapper that persists immediately and never edits a row after Save,
// repurposed here from delivery events to compliance-grade audit events.
type Auditor struct {
	repo AuditRepository
	sink Sink
}

func NewAuditor(repo AuditRepository) *Auditor {
	return &Auditor{repo: repo}
}

// SetSink attaches a Sink that receives every successfully recorded
// event. Optional: if unset, Record only persists to the repository.
func (a *Auditor) SetSink(sink Sink) {
	a.sink = sink
}

// Record implements service.Recorder.
func (a *Auditor) Record(event *domain.AuditEvent) error {
	if err := a.repo.Create(event); err != nil {
		return fmt.Errorf("security: recording audit event: %w", err)
	}
	if a.sink != nil {
		a.sink.Route(event)
	}
	return nil
}

func (a *Auditor) ByKind(kind domain.AuditKind) ([]*domain.AuditEvent, error) {
	return a.repo.ListByKind(kind)
}

func (a *Auditor) ByActor(actor string) ([]*domain.AuditEvent, error) {
	return a.repo.ListByActor(actor)
}

func (a *Auditor) Since(since string) ([]*domain.AuditEvent, error) {
	return a.repo.ListSince(since)
}
