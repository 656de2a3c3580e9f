package service

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type IssueRepository interface {
	Create(i *domain.Issue) error
	FindByID(id string) (*domain.Issue, error)
	Update(i *domain.Issue, expectedUpdatedAt string) error
	Delete(id string) error
	List() ([]*domain.Issue, error)
	ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error)
	ListByAgent(agentID string) ([]*domain.Issue, error)
}

// AgentExistence is the minimal surface IssueService needs to verify an
// assignee exists before binding an issue to it (spec §4.5). Satisfied by
// *AgentService.
type AgentExistence interface {
	Get(agentID string) (*domain.Agent, error)
}

// IssueService owns the issue status graph and its audit trail (spec §3,
// §8 scenario 2).
type IssueService struct {
	repo   IssueRepository
	agents AgentExistence
	audit  Recorder
}

func NewIssueService(repo IssueRepository, agents AgentExistence, audit Recorder) *IssueService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &IssueService{repo: repo, agents: agents, audit: audit}
}

func (s *IssueService) Create(actor, title, description string, priority domain.IssuePriority) (*domain.Issue, error) {
	i, err := domain.NewIssue(title, description, priority)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(i); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditIssueCreated, domain.SeverityLow,
		actor, "issue", i.ID, "create", domain.AuditSuccess))
	return i, nil
}

func (s *IssueService) Assign(actor, issueID, agentID string) (*domain.Issue, error) {
	if s.agents != nil {
		if _, err := s.agents.Get(agentID); err != nil {
			return nil, err
		}
	}
	i, err := s.repo.FindByID(issueID)
	if err != nil {
		return nil, err
	}
	prevUpdated := i.UpdatedAt
	if err := i.Assign(agentID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(i, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to assign issue: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditIssueAssigned, domain.SeverityLow,
		actor, "issue", i.ID, "assign", domain.AuditSuccess).WithMetadata("assignee", agentID))
	return i, nil
}

func (s *IssueService) SetStatus(actor, issueID string, next domain.IssueStatus) (*domain.Issue, error) {
	i, err := s.repo.FindByID(issueID)
	if err != nil {
		return nil, err
	}
	prevUpdated := i.UpdatedAt
	prevStatus := i.Status
	if err := i.SetStatus(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(i, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to update issue status: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditIssueStatusChanged, domain.SeverityLow,
		actor, "issue", i.ID, "status_change", domain.AuditSuccess).
		WithMetadata("from", string(prevStatus)).WithMetadata("to", string(next)))
	return i, nil
}

func (s *IssueService) Block(actor, issueID, reason string) (*domain.Issue, error) {
	i, err := s.repo.FindByID(issueID)
	if err != nil {
		return nil, err
	}
	prevUpdated := i.UpdatedAt
	if err := i.Block(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Update(i, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to block issue: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditIssueStatusChanged, domain.SeverityMedium,
		actor, "issue", i.ID, "block", domain.AuditSuccess).WithMetadata("reason", reason))
	return i, nil
}

func (s *IssueService) Unblock(actor, issueID string, next domain.IssueStatus) (*domain.Issue, error) {
	i, err := s.repo.FindByID(issueID)
	if err != nil {
		return nil, err
	}
	prevUpdated := i.UpdatedAt
	if err := i.Unblock(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(i, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to unblock issue: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditIssueStatusChanged, domain.SeverityLow,
		actor, "issue", i.ID, "unblock", domain.AuditSuccess))
	return i, nil
}

func (s *IssueService) AddTag(issueID, tag string) (*domain.Issue, error) {
	i, err := s.repo.FindByID(issueID)
	if err != nil {
		return nil, err
	}
	prevUpdated := i.UpdatedAt
	if err := i.AddTag(tag); err != nil {
		return nil, err
	}
	if err := s.repo.Update(i, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to tag issue: %w", err)
	}
	return i, nil
}

func (s *IssueService) Get(issueID string) (*domain.Issue, error) {
	return s.repo.FindByID(issueID)
}

func (s *IssueService) List() ([]*domain.Issue, error) {
	return s.repo.List()
}

func (s *IssueService) ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error) {
	return s.repo.ListByStatus(status)
}

func (s *IssueService) ListByAgent(agentID string) ([]*domain.Issue, error) {
	return s.repo.ListByAgent(agentID)
}
