package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind is a closed taxonomy plus a free-form Custom escape hatch
// (spec §3), grounded on the severity/kind taxonomy in
// _examples/original_source/vibe-ensemble-security/src/audit.rs translated
// to idiomatic Go string constants.
type AuditKind string

const (
	AuditAgentRegistered    AuditKind = "AgentRegistered"
	AuditAgentDeregistered  AuditKind = "AgentDeregistered"
	AuditIssueCreated       AuditKind = "IssueCreated"
	AuditIssueAssigned      AuditKind = "IssueAssigned"
	AuditIssueStatusChanged AuditKind = "IssueStatusChanged"
	AuditMessageSent        AuditKind = "MessageSent"
	AuditKnowledgeCreated   AuditKind = "KnowledgeCreated"
	AuditKnowledgeUpdated   AuditKind = "KnowledgeUpdated"
	AuditUserAuthenticated  AuditKind = "UserAuthenticated"
	AuditTokenMinted        AuditKind = "TokenMinted"
	AuditTokenRevoked       AuditKind = "TokenRevoked"
	AuditPermissionDenied   AuditKind = "PermissionDenied"
	AuditSecurityViolation  AuditKind = "SecurityViolation"
	AuditSuspiciousActivity AuditKind = "SuspiciousActivity"
	AuditProjectCreated     AuditKind = "ProjectCreated"
	AuditProjectArchived    AuditKind = "ProjectArchived"
	AuditProjectReactivated AuditKind = "ProjectReactivated"
	AuditConfigCreated      AuditKind = "ConfigCreated"
	AuditConfigUpdated      AuditKind = "ConfigUpdated"
	AuditRateLimitExceeded  AuditKind = "RateLimitExceeded"
	AuditCustom             AuditKind = "Custom"
)

type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "Low"
	SeverityMedium   AuditSeverity = "Medium"
	SeverityHigh     AuditSeverity = "High"
	SeverityCritical AuditSeverity = "Critical"
)

type AuditResult string

const (
	AuditSuccess AuditResult = "success"
	AuditFailure AuditResult = "failure"
)

// AuditEvent is append-only and never edited (spec §3). ResourceType/
// ResourceID identify the target by reference, not ownership — audit
// events may outlive the resources they describe.
type AuditEvent struct {
	ID           string
	Kind         AuditKind
	CustomKind   string // populated only when Kind == AuditCustom
	Severity     AuditSeverity
	Actor        string
	ResourceType string
	ResourceID   string
	Action       string
	Metadata     map[string]string
	Result       AuditResult
	Timestamp    time.Time
}

func NewAuditEvent(kind AuditKind, severity AuditSeverity, actor, resourceType, resourceID, action string, result AuditResult) *AuditEvent {
	return &AuditEvent{
		ID:           uuid.NewString(),
		Kind:         kind,
		Severity:     severity,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Metadata:     map[string]string{},
		Result:       result,
		Timestamp:    time.Now(),
	}
}

func (e *AuditEvent) WithMetadata(key, value string) *AuditEvent {
	e.Metadata[key] = value
	return e
}
