//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/bkn/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			project UNINDEXED,
			path UNINDEXED,
			name,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, project, path, name, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE project = ? AND path = ?`, project, path)
	_, err := tx.Exec(`INSERT INTO documents_fts (project, path, name, body, tags) VALUES (?, ?, ?, ?, ?)`,
		project, path, name, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, project, path string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE project = ? AND path = ?`, project, path)
}

func ftsDeleteProject(tx *sql.Tx, project string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE project = ?`, project)
}

// Search performs an FTS5 full-text search within project and returns
// matching documents with snippets.
func (db *DB) Search(project, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT project,
		       path,
		       name,
		       snippet(documents_fts, 3, '<b>', '</b>', '...', 64)
		FROM documents_fts
		WHERE documents_fts MATCH ? AND project = ?
		ORDER BY rank
		LIMIT ?
	`, query, project, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.Project, &r.Path, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
