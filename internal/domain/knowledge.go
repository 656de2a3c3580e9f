package domain

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeKind string

const (
	KnowledgeKindPattern   KnowledgeKind = "Pattern"
	KnowledgeKindPractice  KnowledgeKind = "Practice"
	KnowledgeKindGuideline KnowledgeKind = "Guideline"
	KnowledgeKindSolution  KnowledgeKind = "Solution"
	KnowledgeKindReference KnowledgeKind = "Reference"
)

// AccessLevel controls Knowledge visibility (spec §3): Public to all, Team
// to all known agents, Private only to its creator (supplemented feature
// from vibe-ensemble-core/src/knowledge.rs, see SPEC_FULL.md §3).
type AccessLevel string

const (
	AccessPublic  AccessLevel = "Public"
	AccessTeam    AccessLevel = "Team"
	AccessPrivate AccessLevel = "Private"
)

const MaxKnowledgeContentLen = 50000

type Knowledge struct {
	ID          string
	Title       string
	Content     string
	Kind        KnowledgeKind
	Tags        []string
	Creator     string
	Version     int
	AccessLevel AccessLevel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewKnowledge(title, content string, kind KnowledgeKind, creator string, access AccessLevel) (*Knowledge, error) {
	if title == "" {
		return nil, NewValidation("knowledge title must not be empty")
	}
	if len(content) > MaxKnowledgeContentLen {
		return nil, NewValidation("knowledge content must be at most %d characters", MaxKnowledgeContentLen)
	}
	if creator == "" {
		return nil, NewValidation("knowledge creator must not be empty")
	}
	now := time.Now()
	return &Knowledge{
		ID:          uuid.NewString(),
		Title:       title,
		Content:     content,
		Kind:        kind,
		Creator:     creator,
		Version:     1,
		AccessLevel: access,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateContent increments Version and touches UpdatedAt (spec §8: version
// increases strictly monotonically across content updates).
func (k *Knowledge) UpdateContent(content string) error {
	if len(content) > MaxKnowledgeContentLen {
		return NewValidation("knowledge content must be at most %d characters", MaxKnowledgeContentLen)
	}
	k.Content = content
	k.Version++
	k.UpdatedAt = time.Now()
	return nil
}

// VisibleTo reports whether viewer (an agent/user id, possibly empty for an
// unauthenticated caller) may read k.
func (k *Knowledge) VisibleTo(viewerID string, viewerKnown bool) bool {
	switch k.AccessLevel {
	case AccessPublic:
		return true
	case AccessTeam:
		return viewerKnown
	case AccessPrivate:
		return viewerID != "" && viewerID == k.Creator
	default:
		return false
	}
}
