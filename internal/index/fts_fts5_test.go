//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Project:   "k8s",
		Path:      "fts.bkn",
		Name:      "FTS Document",
		Checksum:  "f1",
		Tags:      []string{"search"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "Pods are scheduled onto powerful nodes.", nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	results, err := db.Search("k8s", "powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.bkn" {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Project: "k8s", Path: "gone.bkn", Checksum: "g", UpdatedAt: time.Now()}, "vanishing content", nil)
	_ = db.DeleteDocument("k8s", "gone.bkn")

	results, _ := db.Search("k8s", "vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.bkn" {
			t.Error("deleted document still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Project: "k8s", Path: "evo.bkn", Name: "Old", Checksum: "1", UpdatedAt: now}, "original text", nil)
	_ = db.UpsertDocument(DocumentRow{Project: "k8s", Path: "evo.bkn", Name: "New", Checksum: "2", UpdatedAt: now}, "replacement text", nil)

	results, _ := db.Search("k8s", "original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("k8s", "replacement", 10)
	if len(results) != 1 || results[0].Name != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
