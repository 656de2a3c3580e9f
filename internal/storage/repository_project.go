package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type ProjectRepository struct {
	db *DB
}

func NewProjectRepository(db *DB) *ProjectRepository { return &ProjectRepository{db: db} }

func (r *ProjectRepository) Create(p *domain.Project) error {
	_, err := r.db.sql.Exec(`INSERT INTO projects (id, name, description, workspace,
		status, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.Workspace, string(p.Status),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(id string) (*domain.Project, error) {
	row := r.db.sql.QueryRow(projectSelect+` WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) FindByName(name string) (*domain.Project, error) {
	row := r.db.sql.QueryRow(projectSelect+` WHERE name = ?`, name)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("project", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by name: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) Update(p *domain.Project, expectedUpdatedAt string) error {
	res, err := r.db.sql.Exec(`UPDATE projects SET name=?, description=?, workspace=?,
		status=?, updated_at=? WHERE id=? AND updated_at=?`,
		p.Name, p.Description, p.Workspace, string(p.Status),
		formatTime(p.UpdatedAt), p.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *ProjectRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) List() ([]*domain.Project, error) {
	rows, err := r.db.sql.Query(projectSelect + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *ProjectRepository) ListByStatus(status domain.ProjectStatus) ([]*domain.Project, error) {
	rows, err := r.db.sql.Query(projectSelect+` WHERE status = ? ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by status: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

const projectSelect = `SELECT id, name, description, workspace, status,
	created_at, updated_at FROM projects`

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Workspace, &p.Status,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanProjects(rows *sql.Rows) ([]*domain.Project, error) {
	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
