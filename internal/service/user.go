package service

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type UserRepository interface {
	Create(u *domain.User) error
	FindByID(id string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Update(u *domain.User, expectedUpdatedAt string) error
	Delete(id string) error
	List() ([]*domain.User, error)
	SetPasswordHash(userID, hash string, at string) error
	PasswordHash(userID string) (string, error)
}

// PasswordHasher abstracts internal/security's bcrypt wrapper so this
// package never imports internal/security directly.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UserService owns account lifecycle; credential verification happens in
// internal/httpapi's login handler, which loads the stored hash through
// PasswordHash and checks it with internal/security's PasswordHasher
// (spec §4.5 split between account state and secret material).
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	audit  Recorder
}

func NewUserService(repo UserRepository, hasher PasswordHasher, audit Recorder) *UserService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &UserService{repo: repo, hasher: hasher, audit: audit}
}

func (s *UserService) Register(username, email string, role domain.Role, password string) (*domain.User, error) {
	if _, err := s.repo.FindByUsername(username); err == nil {
		return nil, domain.NewConflict("username %q is already taken", username)
	} else if domain.KindOf(err) != domain.KindNotFound {
		return nil, fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	u, err := domain.NewUser(username, email, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(u.ID, hash, formatTimeCompat(u.CreatedAt)); err != nil {
		return nil, fmt.Errorf("failed to store password hash: %w", err)
	}
	return u, nil
}

func (s *UserService) Lock(userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	prevUpdated := u.UpdatedAt
	u.Lock()
	if err := s.repo.Update(u, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return u, nil
}

func (s *UserService) Unlock(userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	prevUpdated := u.UpdatedAt
	u.Unlock()
	if err := s.repo.Update(u, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to unlock user: %w", err)
	}
	return u, nil
}

func (s *UserService) Deactivate(userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	prevUpdated := u.UpdatedAt
	u.Deactivate()
	if err := s.repo.Update(u, formatTimeCompat(prevUpdated)); err != nil {
		return nil, fmt.Errorf("failed to deactivate user: %w", err)
	}
	return u, nil
}

func (s *UserService) Get(userID string) (*domain.User, error) {
	return s.repo.FindByID(userID)
}

func (s *UserService) GetByUsername(username string) (*domain.User, error) {
	return s.repo.FindByUsername(username)
}

func (s *UserService) PasswordHash(userID string) (string, error) {
	return s.repo.PasswordHash(userID)
}

func (s *UserService) List() ([]*domain.User, error) {
	return s.repo.List()
}

func (s *UserService) RecordAuthentication(actor string, success bool) {
	result := domain.AuditSuccess
	if !success {
		result = domain.AuditFailure
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditUserAuthenticated, domain.SeverityLow,
		actor, "user", actor, "authenticate", result))
}
