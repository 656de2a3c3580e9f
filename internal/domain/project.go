package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "Active"
	ProjectStatusArchived ProjectStatus = "Archived"
)

var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// Project owns a human name unique across the registry (enforced by the
// service layer, not here — name uniqueness is a cross-entity invariant,
// spec §4.5).
type Project struct {
	ID          string
	Name        string
	Description string
	Workspace   string // optional filesystem path
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProject(name, description, workspace string) (*Project, error) {
	if !projectNamePattern.MatchString(name) {
		return nil, NewValidation("project name must be alphanumeric plus -/_ and at most 100 characters")
	}
	now := time.Now()
	return &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Workspace:   workspace,
		Status:      ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Archive is reversible: the row remains and only Status changes. No
// service checks Status before assigning work.
func (p *Project) Archive() {
	p.Status = ProjectStatusArchived
	p.UpdatedAt = time.Now()
}

func (p *Project) Reactivate() {
	p.Status = ProjectStatusActive
	p.UpdatedAt = time.Now()
}
