package httpapi

import (
	"sync"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	rows   map[string]*domain.User
	byName map[string]string
	hashes map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[string]*domain.User{}, byName: map[string]string{}, hashes: map[string]string{}}
}

func (r *fakeUserRepo) Create(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.rows[u.ID] = &cp
	r.byName[u.Username] = u.ID
	return nil
}

func (r *fakeUserRepo) FindByID(id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, domain.NewNotFound("user", username)
	}
	cp := *r.rows[id]
	return &cp, nil
}

func (r *fakeUserRepo) Update(u *domain.User, expectedUpdatedAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.rows[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeUserRepo) List() ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.rows))
	for _, u := range r.rows {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeUserRepo) SetPasswordHash(userID, hash, at string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[userID] = hash
	return nil
}

func (r *fakeUserRepo) PasswordHash(userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hashes[userID]
	if !ok {
		return "", domain.NewNotFound("password_hash", userID)
	}
	return h, nil
}

type fakeTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.AgentToken
}

func newFakeTokenRepo() *fakeTokenRepo { return &fakeTokenRepo{rows: map[string]*domain.AgentToken{}} }

func (r *fakeTokenRepo) Create(t *domain.AgentToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) FindByID(id string) (*domain.AgentToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("agent_token", id)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokenRepo) ListByAgent(agentID string) ([]*domain.AgentToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AgentToken
	for _, t := range r.rows {
		if t.AgentID == agentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) Revoke(id, revokedAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return domain.NewNotFound("agent_token", id)
	}
	t.Active = false
	return nil
}

func (r *fakeTokenRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type fakeAgentRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo { return &fakeAgentRepo{rows: map[string]*domain.Agent{}} }

func (r *fakeAgentRepo) Create(a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) FindByID(id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("agent", id)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAgentRepo) Update(a *domain.Agent, expectedUpdatedAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeAgentRepo) List() ([]*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Agent, 0, len(r.rows))
	for _, a := range r.rows {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAgentRepo) ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Agent
	for _, a := range r.rows {
		if a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeIssueRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Issue
}

func newFakeIssueRepo() *fakeIssueRepo { return &fakeIssueRepo{rows: map[string]*domain.Issue{}} }

func (r *fakeIssueRepo) Create(i *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.rows[i.ID] = &cp
	return nil
}

func (r *fakeIssueRepo) FindByID(id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("issue", id)
	}
	cp := *i
	return &cp, nil
}

func (r *fakeIssueRepo) Update(i *domain.Issue, expectedUpdatedAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.rows[i.ID] = &cp
	return nil
}

func (r *fakeIssueRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeIssueRepo) List() ([]*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Issue, 0, len(r.rows))
	for _, i := range r.rows {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeIssueRepo) ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Issue
	for _, i := range r.rows {
		if i.Status == status {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) ListByAgent(agentID string) ([]*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Issue
	for _, i := range r.rows {
		if i.Assignee == agentID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeKnowledgeRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Knowledge
}

func newFakeKnowledgeRepo() *fakeKnowledgeRepo {
	return &fakeKnowledgeRepo{rows: map[string]*domain.Knowledge{}}
}

func (r *fakeKnowledgeRepo) Create(k *domain.Knowledge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *k
	r.rows[k.ID] = &cp
	return nil
}

func (r *fakeKnowledgeRepo) FindByID(id string) (*domain.Knowledge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("knowledge", id)
	}
	cp := *k
	return &cp, nil
}

func (r *fakeKnowledgeRepo) Update(k *domain.Knowledge, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *k
	r.rows[k.ID] = &cp
	return nil
}

func (r *fakeKnowledgeRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeKnowledgeRepo) List() ([]*domain.Knowledge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Knowledge, 0, len(r.rows))
	for _, k := range r.rows {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: map[string]*domain.Message{}}
}

func (r *fakeMessageRepo) Create(m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.rows[m.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) FindByID(id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFound("message", id)
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMessageRepo) MarkDelivered(id, deliveredAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return domain.NewNotFound("message", id)
	}
	if m.DeliveredAt == nil {
		now := m.CreatedAt
		m.DeliveredAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) ListByRecipient(recipient string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.rows {
		if m.Recipient == recipient {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListUndelivered() ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.rows {
		if m.DeliveredAt == nil {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
