package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/models"
)

// ProjectFile holds optional project metadata inside a project directory.
const ProjectFile = "project.yaml"

// FSWorkspace stores every project as a directory under root.
type FSWorkspace struct {
	root     string
	patterns []string
}

// NewFSWorkspace opens a workspace rooted at dir, creating it if needed.
func NewFSWorkspace(dir string, patterns []string) (*FSWorkspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir workspace: %w", err)
	}
	return &FSWorkspace{root: abs, patterns: patterns}, nil
}

// Root returns the absolute workspace directory.
func (w *FSWorkspace) Root() string { return w.root }

// Projects lists project directories.
func (w *FSWorkspace) Projects() ([]models.Project, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list projects: %w", err)
	}
	out := make([]models.Project, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !validProjectID(e.Name()) {
			continue
		}
		p, err := w.meta(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Project) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Project returns the metadata and provider of project id.
func (w *FSWorkspace) Project(id string) (models.Project, Provider, error) {
	if !validProjectID(id) {
		return models.Project{}, nil, fmt.Errorf("storage: project %q: %w", id, apperr.ErrNotFound)
	}
	p, err := w.meta(id)
	if err != nil {
		return models.Project{}, nil, err
	}
	prov, err := NewFS(filepath.Join(w.root, id), w.patterns...)
	if err != nil {
		return models.Project{}, nil, err
	}
	return p, prov, nil
}

// CreateProject makes the project directory and writes its metadata.
func (w *FSWorkspace) CreateProject(p models.Project) (models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if !validProjectID(p.ID) {
		return models.Project{}, fmt.Errorf("storage: project id %q: %w", p.ID, apperr.ErrInvalidPath)
	}
	dir := filepath.Join(w.root, p.ID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return models.Project{}, fmt.Errorf("storage: project %q: %w", p.ID, apperr.ErrAlreadyExists)
		}
		return models.Project{}, fmt.Errorf("storage: create project: %w", err)
	}
	now := time.Now().UTC()
	if p.Name == "" {
		p.Name = p.ID
	}
	p.CreatedAt, p.UpdatedAt = now, now

	data, err := yaml.Marshal(p)
	if err != nil {
		return models.Project{}, fmt.Errorf("storage: encode project: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), data, 0o644); err != nil {
		return models.Project{}, fmt.Errorf("storage: write project: %w", err)
	}
	return p, nil
}

// DeleteProject removes the project directory.
func (w *FSWorkspace) DeleteProject(id string) error {
	if !validProjectID(id) {
		return fmt.Errorf("storage: project %q: %w", id, apperr.ErrNotFound)
	}
	dir := filepath.Join(w.root, id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("storage: project %q: %w", id, apperr.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage: delete project: %w", err)
	}
	return nil
}

// Close is a no-op for the file system backend.
func (w *FSWorkspace) Close() error { return nil }

// meta reads project.yaml, falling back to the directory itself.
func (w *FSWorkspace) meta(id string) (models.Project, error) {
	dir := filepath.Join(w.root, id)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Project{}, fmt.Errorf("storage: project %q: %w", id, apperr.ErrNotFound)
		}
		return models.Project{}, fmt.Errorf("storage: stat project: %w", err)
	}
	if !info.IsDir() {
		return models.Project{}, fmt.Errorf("storage: project %q: %w", id, apperr.ErrNotFound)
	}
	p := models.Project{ID: id, Name: id, CreatedAt: info.ModTime(), UpdatedAt: info.ModTime()}

	data, err := os.ReadFile(filepath.Join(dir, ProjectFile))
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("storage: read project: %w", err)
	}
	var stored models.Project
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return models.Project{}, fmt.Errorf("storage: decode project %q: %w", id, err)
	}
	stored.ID = id
	if stored.Name == "" {
		stored.Name = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = p.CreatedAt
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = p.UpdatedAt
	}
	return stored, nil
}
