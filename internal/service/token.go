package service

import (
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type TokenRepository interface {
	Create(t *domain.AgentToken) error
	FindByID(id string) (*domain.AgentToken, error)
	ListByAgent(agentID string) ([]*domain.AgentToken, error)
	Revoke(id string, revokedAt string) error
	Delete(id string) error
}

// SecretHasher abstracts the bearer-secret hashing scheme (same bcrypt
// wrapper as PasswordHasher, kept as a separate interface so a future
// token-specific scheme doesn't ripple into UserService).
type SecretHasher interface {
	Hash(secret string) (string, error)
}

// TokenService mints and revokes agent bearer tokens (spec §3, §4.6).
type TokenService struct {
	repo   TokenRepository
	hasher SecretHasher
	audit  Recorder
}

func NewTokenService(repo TokenRepository, hasher SecretHasher, audit Recorder) *TokenService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &TokenService{repo: repo, hasher: hasher, audit: audit}
}

// Mint creates a token record and returns it alongside the plaintext
// bearer secret, which the repository never stores (spec §3: "only the
// plaintext bearer value is ever returned to the client, at creation
// time").
func (s *TokenService) Mint(agentID, name string, permissions []domain.Permission, secret string, expiresAt *time.Time) (*domain.AgentToken, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token secret: %w", err)
	}
	t, err := domain.NewAgentToken(agentID, name, permissions, hash, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(t); err != nil {
		return nil, fmt.Errorf("failed to create agent token: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditTokenMinted, domain.SeverityMedium,
		agentID, "agent_token", t.ID, "mint", domain.AuditSuccess))
	return t, nil
}

func (s *TokenService) Revoke(actor, tokenID string) error {
	t, err := s.repo.FindByID(tokenID)
	if err != nil {
		return err
	}
	t.Revoke()
	if err := s.repo.Revoke(tokenID, formatTimeCompat(time.Now())); err != nil {
		return fmt.Errorf("failed to revoke agent token: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditTokenRevoked, domain.SeverityMedium,
		actor, "agent_token", tokenID, "revoke", domain.AuditSuccess))
	return nil
}

func (s *TokenService) Get(tokenID string) (*domain.AgentToken, error) {
	return s.repo.FindByID(tokenID)
}

func (s *TokenService) ListByAgent(agentID string) ([]*domain.AgentToken, error) {
	return s.repo.ListByAgent(agentID)
}
