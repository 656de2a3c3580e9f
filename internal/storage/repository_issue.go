package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type IssueRepository struct {
	db *DB
}

func NewIssueRepository(db *DB) *IssueRepository { return &IssueRepository{db: db} }

func (r *IssueRepository) Create(i *domain.Issue) error {
	_, err := r.db.sql.Exec(`INSERT INTO issues (id, title, description, priority,
		status, blocked_reason, assignee, tags, knowledge_links, web_metadata,
		resolved_at, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		i.ID, i.Title, i.Description, string(i.Priority), string(i.Status),
		i.BlockedReason, i.Assignee, marshalJSON(i.Tags), marshalJSON(i.KnowledgeLinks),
		marshalJSON(i.WebMetadata), formatOptionalTime(i.ResolvedAt),
		formatTime(i.CreatedAt), formatTime(i.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

func (r *IssueRepository) FindByID(id string) (*domain.Issue, error) {
	row := r.db.sql.QueryRow(issueSelect+` WHERE id = ?`, id)
	i, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("issue", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find issue: %w", err)
	}
	return i, nil
}

func (r *IssueRepository) Update(i *domain.Issue, expectedUpdatedAt string) error {
	res, err := r.db.sql.Exec(`UPDATE issues SET title=?, description=?, priority=?,
		status=?, blocked_reason=?, assignee=?, tags=?, knowledge_links=?,
		web_metadata=?, resolved_at=?, updated_at=? WHERE id=? AND updated_at=?`,
		i.Title, i.Description, string(i.Priority), string(i.Status), i.BlockedReason,
		i.Assignee, marshalJSON(i.Tags), marshalJSON(i.KnowledgeLinks),
		marshalJSON(i.WebMetadata), formatOptionalTime(i.ResolvedAt),
		formatTime(i.UpdatedAt), i.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *IssueRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	return nil
}

func (r *IssueRepository) List() ([]*domain.Issue, error) {
	rows, err := r.db.sql.Query(issueSelect + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *IssueRepository) ListByStatus(status domain.IssueStatus) ([]*domain.Issue, error) {
	rows, err := r.db.sql.Query(issueSelect+` WHERE status = ? ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list issues by status: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *IssueRepository) ListByAgent(agentID string) ([]*domain.Issue, error) {
	rows, err := r.db.sql.Query(issueSelect+` WHERE assignee = ? ORDER BY created_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues by agent: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

const issueSelect = `SELECT id, title, description, priority, status,
	blocked_reason, assignee, tags, knowledge_links, web_metadata, resolved_at,
	created_at, updated_at FROM issues`

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var i domain.Issue
	var tagsJSON, linksJSON string
	var webMeta, resolvedAt sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Priority, &i.Status,
		&i.BlockedReason, &i.Assignee, &tagsJSON, &linksJSON, &webMeta,
		&resolvedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(tagsJSON, &i.Tags)
	unmarshalJSON(linksJSON, &i.KnowledgeLinks)
	if webMeta.Valid && webMeta.String != "" && webMeta.String != "null" {
		var wm domain.WebMetadata
		unmarshalJSON(webMeta.String, &wm)
		i.WebMetadata = &wm
	}
	i.ResolvedAt = parseOptionalTime(resolvedAt)
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return &i, nil
}

func scanIssues(rows *sql.Rows) ([]*domain.Issue, error) {
	var out []*domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
