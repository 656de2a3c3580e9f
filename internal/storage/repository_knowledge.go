package storage

import (
	"database/sql"
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

type KnowledgeRepository struct {
	db *DB
}

func NewKnowledgeRepository(db *DB) *KnowledgeRepository { return &KnowledgeRepository{db: db} }

func (r *KnowledgeRepository) Create(k *domain.Knowledge) error {
	_, err := r.db.sql.Exec(`INSERT INTO knowledge (id, title, content, kind,
		tags, creator, version, access_level, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		k.ID, k.Title, k.Content, string(k.Kind), marshalJSON(k.Tags), k.Creator,
		k.Version, string(k.AccessLevel), formatTime(k.CreatedAt), formatTime(k.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create knowledge: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) FindByID(id string) (*domain.Knowledge, error) {
	row := r.db.sql.QueryRow(knowledgeSelect+` WHERE id = ?`, id)
	k, err := scanKnowledge(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("knowledge", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find knowledge: %w", err)
	}
	return k, nil
}

// Update uses Version (not updated_at) as the optimistic-lock token, since
// Knowledge is the one entity spec §3 names as version-guarded explicitly.
func (r *KnowledgeRepository) Update(k *domain.Knowledge, expectedVersion int) error {
	res, err := r.db.sql.Exec(`UPDATE knowledge SET title=?, content=?, kind=?,
		tags=?, access_level=?, version=?, updated_at=? WHERE id=? AND version=?`,
		k.Title, k.Content, string(k.Kind), marshalJSON(k.Tags), string(k.AccessLevel),
		k.Version, formatTime(k.UpdatedAt), k.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update knowledge: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrOptimisticLock
	}
	return nil
}

func (r *KnowledgeRepository) Delete(id string) error {
	_, err := r.db.sql.Exec(`DELETE FROM knowledge WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) List() ([]*domain.Knowledge, error) {
	rows, err := r.db.sql.Query(knowledgeSelect + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

// SearchCriteria is the criteria builder the spec's Knowledge repository
// names explicitly (§4.4 "search on Knowledge with a criteria builder").
type SearchCriteria struct {
	Kind        domain.KnowledgeKind
	Tag         string
	Creator     string
	AccessLevel domain.AccessLevel
	TitleLike   string
}

func (r *KnowledgeRepository) Search(c SearchCriteria) ([]*domain.Knowledge, error) {
	query := knowledgeSelect + ` WHERE 1=1`
	var args []any

	if c.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(c.Kind))
	}
	if c.Creator != "" {
		query += ` AND creator = ?`
		args = append(args, c.Creator)
	}
	if c.AccessLevel != "" {
		query += ` AND access_level = ?`
		args = append(args, string(c.AccessLevel))
	}
	if c.TitleLike != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+c.TitleLike+"%")
	}
	if c.Tag != "" {
		query += ` AND tags LIKE ?`
		args = append(args, "%\""+c.Tag+"\"%")
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

const knowledgeSelect = `SELECT id, title, content, kind, tags, creator,
	version, access_level, created_at, updated_at FROM knowledge`

func scanKnowledge(row rowScanner) (*domain.Knowledge, error) {
	var k domain.Knowledge
	var tagsJSON, createdAt, updatedAt string
	err := row.Scan(&k.ID, &k.Title, &k.Content, &k.Kind, &tagsJSON, &k.Creator,
		&k.Version, &k.AccessLevel, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(tagsJSON, &k.Tags)
	k.CreatedAt = parseTime(createdAt)
	k.UpdatedAt = parseTime(updatedAt)
	return &k, nil
}

func scanKnowledgeRows(rows *sql.Rows) ([]*domain.Knowledge, error) {
	var out []*domain.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
