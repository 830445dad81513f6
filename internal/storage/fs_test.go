package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/bkn/internal/apperr"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("---\ntype: entity\nid: pod\n---\n")
	if err := s.Write("pod.bkn", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("pod.bkn")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempProject(t)
	if err := s.Write("entities/k8s/pod.bkn", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("entities/k8s/pod.bkn")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("del.bkn", []byte("bye"))
	if err := s.Delete("del.bkn"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := s.Read("del.bkn")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read deleted = %v, want ErrNotExist", err)
	}
}

func TestMove(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("old.bkn", []byte("data"))
	if err := s.Move("old.bkn", "sub/new.bkn"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.bkn")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.bkn"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("index.bkn", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not a document"))
	_ = s.Write(".hidden/c.bkn", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Path != "index.bkn" && it.Path != "sub/b.md" {
			t.Errorf("unexpected path %q", it.Path)
		}
		if it.Checksum == "" {
			t.Errorf("missing checksum for %q", it.Path)
		}
	}

	sub, err := s.List("sub")
	if err != nil {
		t.Fatalf("List sub: %v", err)
	}
	if len(sub) != 1 || sub[0].Path != "sub/b.md" {
		t.Errorf("List(sub) = %+v", sub)
	}
}

func TestListPatterns(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, "entities/**/*.bkn")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = s.Write("entities/pod.bkn", []byte("a"))
	_ = s.Write("relations/r.bkn", []byte("b"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "entities/pod.bkn" {
		t.Errorf("List = %+v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.bkn",
		"/etc/shadow",
		"a/../../b.bkn",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("atomic.bkn", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.bkn", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.bkn")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".bkn-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "bkn-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"index.bkn", true},
		{"a/b/c.md", true},
		{"notes.txt", false},
		{".git/x.md", false},
		{"dir/.bkn-tmp-123", false},
		{"../escape.bkn", false},
		{"/abs.bkn", false},
	}
	for _, c := range cases {
		if got := Matches(nil, c.path); got != c.want {
			t.Errorf("Matches(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
