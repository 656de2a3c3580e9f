package service

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type ProjectRepository interface {
	Create(p *domain.Project) error
	FindByID(id string) (*domain.Project, error)
	FindByName(name string) (*domain.Project, error)
	Update(p *domain.Project, expectedUpdatedAt string) error
	Delete(id string) error
	List() ([]*domain.Project, error)
	ListByStatus(status domain.ProjectStatus) ([]*domain.Project, error)
}

// ProjectService enforces project-name uniqueness, a cross-entity
// invariant the domain package deliberately leaves to the service layer
// (spec §4.5, see domain.Project's doc comment), and emits the audit
// trail for every state-changing method (spec §4.5).
type ProjectService struct {
	repo  ProjectRepository
	audit Recorder
}

func NewProjectService(repo ProjectRepository, audit Recorder) *ProjectService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &ProjectService{repo: repo, audit: audit}
}

func (s *ProjectService) Create(actor, name, description, workspace string) (*domain.Project, error) {
	if _, err := s.repo.FindByName(name); err == nil {
		return nil, domain.NewConflict("project name %q is already in use", name)
	} else if domain.KindOf(err) != domain.KindNotFound {
		return nil, fmt.Errorf("failed to check project name uniqueness: %w", err)
	}
	p, err := domain.NewProject(name, description, workspace)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditProjectCreated, domain.SeverityLow,
		actor, "project", p.ID, "create", domain.AuditSuccess))
	return p, nil
}

func (s *ProjectService) Archive(actor, projectID string) (*domain.Project, error) {
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	prevUpdated := p.UpdatedAt
	p.Archive()
	if err := s.repo.Update(p, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to archive project: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditProjectArchived, domain.SeverityLow,
		actor, "project", p.ID, "archive", domain.AuditSuccess))
	return p, nil
}

func (s *ProjectService) Reactivate(actor, projectID string) (*domain.Project, error) {
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	prevUpdated := p.UpdatedAt
	p.Reactivate()
	if err := s.repo.Update(p, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to reactivate project: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditProjectReactivated, domain.SeverityLow,
		actor, "project", p.ID, "reactivate", domain.AuditSuccess))
	return p, nil
}

func (s *ProjectService) Get(projectID string) (*domain.Project, error) {
	return s.repo.FindByID(projectID)
}

func (s *ProjectService) List() ([]*domain.Project, error) {
	return s.repo.List()
}
