package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/bkn/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Project   string
	Path      string
	Type      string
	ID        string
	Name      string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// UpsertDocument inserts or replaces a document, its FTS entry and the
// records it defines within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, records []models.RecordRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO documents (project, path, doc_type, doc_id, name, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, path) DO UPDATE SET
			doc_type   = excluded.doc_type,
			doc_id     = excluded.doc_id,
			name       = excluded.name,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Project, d.Path, d.Type, d.ID, d.Name, d.Checksum, string(tagsJSON), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.Project, d.Path, d.Name, body, d.Tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM records WHERE project = ? AND path = ?`, d.Project, d.Path)
	if len(records) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO records (project, path, kind, record_id, name, ref, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare record insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range records {
			if _, err := stmt.Exec(d.Project, d.Path, r.Kind, r.ID, r.Name, r.Ref, i); err != nil {
				return fmt.Errorf("index: insert record: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry and its records.
func (db *DB) DeleteDocument(project, path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, project, path)
	_, _ = tx.Exec(`DELETE FROM records WHERE project = ? AND path = ?`, project, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE project = ? AND path = ?`, project, path)

	return tx.Commit()
}

// DeleteProject removes every document of a project.
func (db *DB) DeleteProject(project string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteProject(tx, project)
	_, _ = tx.Exec(`DELETE FROM records WHERE project = ?`, project)
	_, _ = tx.Exec(`DELETE FROM documents WHERE project = ?`, project)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(project, path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE project = ? AND path = ?`, project, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums maps every indexed path of project to its checksum.
func (db *DB) AllChecksums(project string) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents WHERE project = ?`, project)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Projects returns the distinct projects that have indexed documents.
func (db *DB) Projects() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT project FROM documents ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("index: projects: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListDocuments returns the documents of project ordered by path. A non-empty
// docType restricts the result to that front-matter type.
func (db *DB) ListDocuments(project, docType string) ([]models.DocumentSummary, error) {
	query := `SELECT project, path, doc_type, doc_id, name, tags, checksum, updated_at
		FROM documents WHERE project = ?`
	args := []any{project}
	if docType != "" {
		query += ` AND doc_type = ?`
		args = append(args, docType)
	}
	query += ` ORDER BY path`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentSummary
	for rows.Next() {
		var s models.DocumentSummary
		var tags string
		if err := rows.Scan(&s.Project, &s.Path, &s.Type, &s.ID, &s.Name, &tags, &s.Checksum, &s.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &s.Tags)
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindRecords returns record definitions of project in path and scan order.
// Empty kind or id match anything; kind is compared case-insensitively.
func (db *DB) FindRecords(project, kind, id string) ([]models.RecordRef, error) {
	query := `SELECT project, path, kind, record_id, name, ref FROM records WHERE project = ?`
	args := []any{project}
	if kind != "" {
		query += ` AND lower(kind) = ?`
		args = append(args, strings.ToLower(kind))
	}
	if id != "" {
		query += ` AND record_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY path, seq`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: find records: %w", err)
	}
	defer rows.Close()

	var out []models.RecordRef
	for rows.Next() {
		var r models.RecordRef
		if err := rows.Scan(&r.Project, &r.Path, &r.Kind, &r.ID, &r.Name, &r.Ref); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
