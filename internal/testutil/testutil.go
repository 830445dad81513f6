// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/models"
	"github.com/starford/bkn/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bkn-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary filesystem workspace.
func TestWorkspace(t *testing.T) *storage.FSWorkspace {
	t.Helper()
	ws, err := storage.NewFSWorkspace(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// TestProject creates project id in ws, writes files into it and returns its
// document provider.
func TestProject(t *testing.T, ws storage.Workspace, id string, files map[string]string) storage.Provider {
	t.Helper()
	if _, err := ws.CreateProject(models.Project{ID: id, Name: id}); err != nil {
		t.Fatal(err)
	}
	_, store, err := ws.Project(id)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
