package service

import (
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// AgentRepository is the storage-layer surface AgentService needs. Defined
// here (rather than imported as *storage.AgentRepository) so the service
// layer can be unit tested against an in-memory fake.
type AgentRepository interface {
	Create(a *domain.Agent) error
	FindByID(id string) (*domain.Agent, error)
	Update(a *domain.Agent, expectedUpdatedAt string) error
	Delete(id string) error
	List() ([]*domain.Agent, error)
	ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error)
}

// AgentService enforces the registration/heartbeat/liveness invariants
// around domain.Agent and emits the matching audit trail (spec §3, §4.5).
type AgentService struct {
	repo      AgentRepository
	audit     Recorder
	idleBound time.Duration
}

func NewAgentService(repo AgentRepository, audit Recorder, idleBound time.Duration) *AgentService {
	if audit == nil {
		audit = NoopRecorder
	}
	if idleBound <= 0 {
		idleBound = 60 * time.Second
	}
	return &AgentService{repo: repo, audit: audit, idleBound: idleBound}
}

func (s *AgentService) Register(name string, kind domain.AgentKind, capabilities []string, conn domain.ConnectionInfo) (*domain.Agent, error) {
	a, err := domain.NewAgent(name, kind, capabilities, conn)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(a); err != nil {
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditAgentRegistered, domain.SeverityLow,
		a.ID, "agent", a.ID, "register", domain.AuditSuccess))
	return a, nil
}

func (s *AgentService) Heartbeat(agentID string, at time.Time) (*domain.Agent, error) {
	a, err := s.repo.FindByID(agentID)
	if err != nil {
		return nil, err
	}
	prevUpdated := a.UpdatedAt
	a.Touch(at)
	if err := s.repo.Update(a, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return a, nil
}

func (s *AgentService) SetBusy(agentID string) (*domain.Agent, error) {
	a, err := s.repo.FindByID(agentID)
	if err != nil {
		return nil, err
	}
	prevUpdated := a.UpdatedAt
	a.SetBusy()
	if err := s.repo.Update(a, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to set agent busy: %w", err)
	}
	return a, nil
}

func (s *AgentService) SetIdle(agentID string) (*domain.Agent, error) {
	a, err := s.repo.FindByID(agentID)
	if err != nil {
		return nil, err
	}
	prevUpdated := a.UpdatedAt
	a.SetIdle()
	if err := s.repo.Update(a, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to set agent idle: %w", err)
	}
	return a, nil
}

// SweepLiveness applies the liveness rule to every non-Offline agent;
// mcpserver.Server.CleanupStale calls it, and main.go runs that on a ticker.
func (s *AgentService) SweepLiveness(now time.Time) (int, error) {
	agents, err := s.repo.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list agents for liveness sweep: %w", err)
	}
	demoted := 0
	for _, a := range agents {
		before := a.Status
		prevUpdated := a.UpdatedAt
		a.ApplyLivenessRule(now, s.idleBound)
		if a.Status == before {
			continue
		}
		if err := s.repo.Update(a, formatTimeCompat(prevUpdated)); err != nil {
			continue // best-effort; next sweep will retry
		}
		demoted++
	}
	return demoted, nil
}

func (s *AgentService) Deregister(agentID string) error {
	if _, err := s.repo.FindByID(agentID); err != nil {
		return err
	}
	if err := s.repo.Delete(agentID); err != nil {
		return fmt.Errorf("failed to deregister agent: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditAgentDeregistered, domain.SeverityLow,
		agentID, "agent", agentID, "deregister", domain.AuditSuccess))
	return nil
}

func (s *AgentService) Get(agentID string) (*domain.Agent, error) {
	return s.repo.FindByID(agentID)
}

func (s *AgentService) List() ([]*domain.Agent, error) {
	return s.repo.List()
}

func (s *AgentService) ListByStatus(status domain.AgentStatus) ([]*domain.Agent, error) {
	return s.repo.ListByStatus(status)
}
