// Package storage defines the document store abstraction: a Workspace of
// projects, each exposing its documents through a Provider.
package storage

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/bkn/internal/models"
)

// DefaultPatterns selects BKN documents when no patterns are configured.
var DefaultPatterns = []string{"**/*.bkn", "**/*.md"}

// Provider is the interface for document operations within one project.
// Paths are relative to the project root and use forward slashes.
type Provider interface {
	// List returns metadata for every document under dir that matches the
	// configured patterns.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// Workspace is the set of projects known to the service.
type Workspace interface {
	// Projects lists every project, sorted by id.
	Projects() ([]models.Project, error)
	// Project returns the project metadata and its document provider.
	Project(id string) (models.Project, Provider, error)
	// CreateProject stores a new project. An empty id is replaced by a
	// generated one.
	CreateProject(p models.Project) (models.Project, error)
	// DeleteProject removes a project and all of its documents.
	DeleteProject(id string) error
	// Close releases backend resources.
	Close() error
}

// Matches reports whether rel is selected by any of patterns. Hidden files
// and directories, and paths escaping the project root, never match.
func Matches(patterns []string, rel string) bool {
	rel, ok := cleanRel(rel)
	if !ok || rel == "" {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// cleanRel normalizes a project-relative path. ok is false when the path is
// absolute or escapes the project root.
func cleanRel(rel string) (string, bool) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	if cleaned == "." {
		return "", true
	}
	return cleaned, true
}

// validProjectID reports whether id can name a project directory or bucket.
func validProjectID(id string) bool {
	if id == "" || len(id) > 128 || strings.HasPrefix(id, ".") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
