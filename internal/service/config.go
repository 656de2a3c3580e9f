package service

import (
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type ConfigRepository interface {
	Create(c *domain.Configuration) error
	FindByID(id string) (*domain.Configuration, error)
	FindByName(name string) (*domain.Configuration, error)
	Update(c *domain.Configuration, expectedVersion int) error
	Delete(id string) error
	List() ([]*domain.Configuration, error)
}

// ConfigService wraps version-guarded Configuration updates (spec §3: same
// optimistic-lock shape as Knowledge) and emits the audit trail for every
// state-changing method (spec §4.5).
type ConfigService struct {
	repo  ConfigRepository
	audit Recorder
}

func NewConfigService(repo ConfigRepository, audit Recorder) *ConfigService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &ConfigService{repo: repo, audit: audit}
}

func (s *ConfigService) Create(actor, name string, maxConcurrency int, timeout, heartbeat time.Duration, lb domain.LoadBalancingStrategy, fh domain.FailureStrategy) (*domain.Configuration, error) {
	c, err := domain.NewConfiguration(name, maxConcurrency, timeout, heartbeat, lb, fh)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(c); err != nil {
		return nil, fmt.Errorf("failed to create configuration: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditConfigCreated, domain.SeverityLow,
		actor, "configuration", c.ID, "create", domain.AuditSuccess))
	return c, nil
}

// Update applies mutate under the given expected version and persists the
// bumped version, following domain.Configuration.ApplyUpdate's contract.
func (s *ConfigService) Update(actor, configID string, expectedVersion int, mutate func(*domain.Configuration)) (*domain.Configuration, error) {
	c, err := s.repo.FindByID(configID)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyUpdate(expectedVersion, mutate); err != nil {
		return nil, err
	}
	if err := s.repo.Update(c, expectedVersion); err != nil {
		return nil, fmt.Errorf("failed to update configuration: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditConfigUpdated, domain.SeverityLow,
		actor, "configuration", c.ID, "update", domain.AuditSuccess))
	return c, nil
}

func (s *ConfigService) Get(configID string) (*domain.Configuration, error) {
	return s.repo.FindByID(configID)
}

func (s *ConfigService) GetByName(name string) (*domain.Configuration, error) {
	return s.repo.FindByName(name)
}

func (s *ConfigService) List() ([]*domain.Configuration, error) {
	return s.repo.List()
}
