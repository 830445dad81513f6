//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/bkn/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE on documents.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _, _ string) {}

func ftsDeleteProject(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(project, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT project, path, name, substr(body, 1, 200)
		FROM documents
		WHERE project = ? AND (name LIKE ? OR body LIKE ? OR tags LIKE ? OR doc_id LIKE ?)
		ORDER BY path
		LIMIT ?
	`, project, like, like, like, like, limit)
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
