package service

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type KnowledgeRepository interface {
	Create(k *domain.Knowledge) error
	FindByID(id string) (*domain.Knowledge, error)
	Update(k *domain.Knowledge, expectedVersion int) error
	Delete(id string) error
	List() ([]*domain.Knowledge, error)
}

// KnowledgeService enforces version-guarded updates and access-level
// visibility (spec §3, §8).
type KnowledgeService struct {
	repo  KnowledgeRepository
	audit Recorder
}

func NewKnowledgeService(repo KnowledgeRepository, audit Recorder) *KnowledgeService {
	if audit == nil {
		audit = NoopRecorder
	}
	return &KnowledgeService{repo: repo, audit: audit}
}

func (s *KnowledgeService) Create(title, content string, kind domain.KnowledgeKind, creator string, access domain.AccessLevel) (*domain.Knowledge, error) {
	k, err := domain.NewKnowledge(title, content, kind, creator, access)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(k); err != nil {
		return nil, fmt.Errorf("failed to create knowledge: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditKnowledgeCreated, domain.SeverityLow,
		creator, "knowledge", k.ID, "create", domain.AuditSuccess))
	return k, nil
}

func (s *KnowledgeService) UpdateContent(actor, knowledgeID, content string, expectedVersion int) (*domain.Knowledge, error) {
	k, err := s.repo.FindByID(knowledgeID)
	if err != nil {
		return nil, err
	}
	if k.Version != expectedVersion {
		return nil, domain.ErrOptimisticLock
	}
	if err := k.UpdateContent(content); err != nil {
		return nil, err
	}
	if err := s.repo.Update(k, expectedVersion); err != nil {
		return nil, fmt.Errorf("failed to update knowledge: %w", err)
	}
	auditOrWarn(s.audit, domain.NewAuditEvent(domain.AuditKnowledgeUpdated, domain.SeverityLow,
		actor, "knowledge", k.ID, "update", domain.AuditSuccess))
	return k, nil
}

// Get returns k only if viewer may see it, else a NotFound error — a
// Private knowledge entry the caller cannot see looks identical to one
// that doesn't exist (spec §4.5 access control plane).
func (s *KnowledgeService) Get(knowledgeID, viewerID string, viewerKnown bool) (*domain.Knowledge, error) {
	k, err := s.repo.FindByID(knowledgeID)
	if err != nil {
		return nil, err
	}
	if !k.VisibleTo(viewerID, viewerKnown) {
		return nil, domain.NewNotFound("knowledge", knowledgeID)
	}
	return k, nil
}

func (s *KnowledgeService) Delete(knowledgeID string) error {
	return s.repo.Delete(knowledgeID)
}

// ListVisibleTo returns every entry viewer may see.
func (s *KnowledgeService) ListVisibleTo(viewerID string, viewerKnown bool) ([]*domain.Knowledge, error) {
	all, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	out := make([]*domain.Knowledge, 0, len(all))
	for _, k := range all {
		if k.VisibleTo(viewerID, viewerKnown) {
			out = append(out, k)
		}
	}
	return out, nil
}
