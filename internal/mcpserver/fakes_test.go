package mcpserver

import (
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

type fakeAgentRepo struct {
	byID map[string]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo { return &fakeAgentRepo{byID: map[string]*domain.Agent{}} }

func (f *fakeAgentRepo) Create(a *domain.Agent) error {
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAgentRepo) FindByID(id string) (*domain.Agent, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFound("agent", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAgentRepo) Update(a *domain.Agent, expectedUpdatedAt string) error {
	existing, ok := f.byID[a.ID]
	if !ok {
		return domain.NewNotFound("agent", a.ID)
	}
	if formatTime(existing.UpdatedAt) != expectedUpdatedAt {
		return domain.NewConflict("agent %s was modified concurrently", a.ID)
	}
	cp := *a
	cp.UpdatedAt = time.Now()
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAgentRepo) Delete(id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.NewNotFound("agent", id)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeAgentRepo) List() ([]*domain.Agent, error) {
	out := make([]*domain.Agent, 0, len(f.byID))
	for _, a := range f.byID {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAgentRepo) ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error) {
	var out []*domain.Agent
	for _, a := range f.byID {
		if a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeIssueRepo struct {
	byID map[string]*domain.Issue
}

func newFakeIssueRepo() *fakeIssueRepo { return &fakeIssueRepo{byID: map[string]*domain.Issue{}} }

func (f *fakeIssueRepo) Create(i *domain.Issue) error {
	cp := *i
	f.byID[i.ID] = &cp
	return nil
}

func (f *fakeIssueRepo) FindByID(id string) (*domain.Issue, error) {
	i, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFound("issue", id)
	}
	cp := *i
	return &cp, nil
}

func (f *fakeIssueRepo) Update(i *domain.Issue, expectedUpdatedAt string) error {
	existing, ok := f.byID[i.ID]
	if !ok {
		return domain.NewNotFound("issue", i.ID)
	}
	if formatTime(existing.UpdatedAt) != expectedUpdatedAt {
		return domain.NewConflict("issue %s was modified concurrently", i.ID)
	}
	cp := *i
	cp.UpdatedAt = time.Now()
	f.byID[i.ID] = &cp
	return nil
}

func (f *fakeIssueRepo) Delete(id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeIssueRepo) List() ([]*domain.Issue, error) {
	out := make([]*domain.Issue, 0, len(f.byID))
	for _, i := range f.byID {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeIssueRepo) ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error) {
	var out []*domain.Issue
	for _, i := range f.byID {
		if i.Status == status {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeIssueRepo) ListByAgent(agentID string) ([]*domain.Issue, error) {
	var out []*domain.Issue
	for _, i := range f.byID {
		if i.Assignee == agentID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeKnowledgeRepo struct {
	byID map[string]*domain.Knowledge
}

func newFakeKnowledgeRepo() *fakeKnowledgeRepo {
	return &fakeKnowledgeRepo{byID: map[string]*domain.Knowledge{}}
}

func (f *fakeKnowledgeRepo) Create(k *domain.Knowledge) error {
	cp := *k
	f.byID[k.ID] = &cp
	return nil
}

func (f *fakeKnowledgeRepo) FindByID(id string) (*domain.Knowledge, error) {
	k, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFound("knowledge", id)
	}
	cp := *k
	return &cp, nil
}

func (f *fakeKnowledgeRepo) Update(k *domain.Knowledge, expectedVersion int) error {
	existing, ok := f.byID[k.ID]
	if !ok {
		return domain.NewNotFound("knowledge", k.ID)
	}
	if existing.Version != expectedVersion {
		return domain.NewConflict("knowledge %s was modified concurrently", k.ID)
	}
	cp := *k
	f.byID[k.ID] = &cp
	return nil
}

func (f *fakeKnowledgeRepo) Delete(id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeKnowledgeRepo) List() ([]*domain.Knowledge, error) {
	out := make([]*domain.Knowledge, 0, len(f.byID))
	for _, k := range f.byID {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}
