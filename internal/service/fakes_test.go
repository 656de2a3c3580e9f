package service

import (
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// fakeAgentRepo is an in-memory AgentRepository for service-layer tests,
// mirroring the hand-rolled fakes the teacher's package tests use instead
// of a real store (see internal/metrics/collector_test.go).
type fakeAgentRepo struct {
	rows map[string]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo { return &fakeAgentRepo{rows: map[string]*domain.Agent{}} }

func (f *fakeAgentRepo) Create(a *domain.Agent) error {
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAgentRepo) FindByID(id string) (*domain.Agent, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFound("agent", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAgentRepo) Update(a *domain.Agent, expectedUpdatedAt string) error {
	existing, ok := f.rows[a.ID]
	if !ok {
		return domain.NewNotFound("agent", a.ID)
	}
	if formatTimeCompat(existing.UpdatedAt) != expectedUpdatedAt {
		return domain.ErrOptimisticLock
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAgentRepo) Delete(id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeAgentRepo) List() ([]*domain.Agent, error) {
	out := make([]*domain.Agent, 0, len(f.rows))
	for _, a := range f.rows {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAgentRepo) ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error) {
	var out []*domain.Agent
	for _, a := range f.rows {
		if a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeIssueRepo is an in-memory IssueRepository.
type fakeIssueRepo struct {
	rows map[string]*domain.Issue
}

func newFakeIssueRepo() *fakeIssueRepo { return &fakeIssueRepo{rows: map[string]*domain.Issue{}} }

func (f *fakeIssueRepo) Create(i *domain.Issue) error {
	cp := *i
	f.rows[i.ID] = &cp
	return nil
}

func (f *fakeIssueRepo) FindByID(id string) (*domain.Issue, error) {
	i, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFound("issue", id)
	}
	cp := *i
	return &cp, nil
}

func (f *fakeIssueRepo) Update(i *domain.Issue, expectedUpdatedAt string) error {
	existing, ok := f.rows[i.ID]
	if !ok {
		return domain.NewNotFound("issue", i.ID)
	}
	if formatTimeCompat(existing.UpdatedAt) != expectedUpdatedAt {
		return domain.ErrOptimisticLock
	}
	cp := *i
	f.rows[i.ID] = &cp
	return nil
}

func (f *fakeIssueRepo) Delete(id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeIssueRepo) List() ([]*domain.Issue, error) {
	out := make([]*domain.Issue, 0, len(f.rows))
	for _, i := range f.rows {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeIssueRepo) ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error) {
	var out []*domain.Issue
	for _, i := range f.rows {
		if i.Status == status {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeIssueRepo) ListByAgent(agentID string) ([]*domain.Issue, error) {
	var out []*domain.Issue
	for _, i := range f.rows {
		if i.Assignee == agentID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeRecorder captures audit events for assertions.
type fakeRecorder struct {
	events []*domain.AuditEvent
}

func (f *fakeRecorder) Record(e *domain.AuditEvent) error {
	f.events = append(f.events, e)
	return nil
}

// fakeProjectRepo is an in-memory ProjectRepository.
type fakeProjectRepo struct {
	rows map[string]*domain.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{rows: map[string]*domain.Project{}}
}

func (f *fakeProjectRepo) Create(p *domain.Project) error {
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProjectRepo) FindByID(id string) (*domain.Project, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepo) FindByName(name string) (*domain.Project, error) {
	for _, p := range f.rows {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewNotFound("project", name)
}

func (f *fakeProjectRepo) Update(p *domain.Project, expectedUpdatedAt string) error {
	existing, ok := f.rows[p.ID]
	if !ok {
		return domain.NewNotFound("project", p.ID)
	}
	if formatTimeCompat(existing.UpdatedAt) != expectedUpdatedAt {
		return domain.ErrOptimisticLock
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProjectRepo) Delete(id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeProjectRepo) List() ([]*domain.Project, error) {
	out := make([]*domain.Project, 0, len(f.rows))
	for _, p := range f.rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProjectRepo) ListByStatus(status domain.ProjectStatus) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range f.rows {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
