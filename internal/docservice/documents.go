package docservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/models"
	"github.com/starford/bkn/internal/storage"
	"github.com/starford/bkn/internal/textenc"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Project     string             `json:"project"`
	Path        string             `json:"path"`
	Content     string             `json:"content"`
	Checksum    string             `json:"checksum"`
	Frontmatter bkn.Frontmatter    `json:"frontmatter"`
	Records     []models.RecordRef `json:"records"`
	Diagnostics []bkn.Diagnostic   `json:"diagnostics"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Projects lists the workspace projects.
func (s *Service) Projects(_ context.Context) ([]models.Project, error) {
	projects, err := s.ws.Projects()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(projects), nil
}

// Project returns one project's metadata.
func (s *Service) Project(_ context.Context, id string) (models.Project, error) {
	p, _, err := s.ws.Project(id)
	return p, err
}

// CreateProject stores a new, empty project.
func (s *Service) CreateProject(_ context.Context, p models.Project) (models.Project, error) {
	return s.ws.CreateProject(p)
}

// DeleteProject removes a project with its documents and index entries.
func (s *Service) DeleteProject(_ context.Context, id string) error {
	if err := s.ws.DeleteProject(id); err != nil {
		return err
	}
	if err := s.db.DeleteProject(id); err != nil {
		return err
	}
	s.publish(index.EventDeleted, id, "")
	return nil
}

// ListDocuments returns the indexed documents of project, optionally
// restricted to one document type.
func (s *Service) ListDocuments(_ context.Context, project, docType string) ([]models.DocumentSummary, error) {
	if _, err := s.provider(project); err != nil {
		return nil, err
	}
	docs, err := s.db.ListDocuments(project, docType)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(docs), nil
}

// GetDocument reads and parses one document.
func (s *Service) GetDocument(_ context.Context, project, path string) (*DocumentDetail, error) {
	store, err := s.provider(project)
	if err != nil {
		return nil, err
	}
	data, err := s.read(store, path)
	if err != nil {
		return nil, err
	}
	return s.detail(project, path, data), nil
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(_ context.Context, project, path string, content []byte) (*DocumentDetail, error) {
	store, err := s.provider(project)
	if err != nil {
		return nil, err
	}
	if !storage.Matches(s.patterns, path) {
		return nil, fmt.Errorf("docservice: %s is not a document path: %w", path, apperr.ErrInvalidPath)
	}
	if _, err := store.Read(path); err == nil {
		return nil, fmt.Errorf("docservice: %s: %w", path, apperr.ErrAlreadyExists)
	}
	if err := s.write(store, project, path, content); err != nil {
		return nil, err
	}
	s.publish(index.EventCreated, project, path)
	return s.detail(project, path, content), nil
}

// UpdateDocument writes new content with optimistic concurrency: a non-empty
// ifMatch must name the stored checksum.
func (s *Service) UpdateDocument(_ context.Context, project, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	store, err := s.provider(project)
	if err != nil {
		return nil, err
	}
	existing, err := s.read(store, path)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(ifMatch, existing) {
		return nil, fmt.Errorf("docservice: %s: %w", path, apperr.ErrConflict)
	}
	if err := s.write(store, project, path, content); err != nil {
		return nil, err
	}
	s.publish(index.EventUpdated, project, path)
	return s.detail(project, path, content), nil
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, project, path string) error {
	store, err := s.provider(project)
	if err != nil {
		return err
	}
	if _, err := s.read(store, path); err != nil {
		return err
	}
	if err := store.Delete(path); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(project, path); err != nil {
		return err
	}
	s.publish(index.EventDeleted, project, path)
	return nil
}

// MoveDocument renames a document inside its project.
func (s *Service) MoveDocument(_ context.Context, project, from, to string) (*DocumentDetail, error) {
	store, err := s.provider(project)
	if err != nil {
		return nil, err
	}
	if !storage.Matches(s.patterns, to) {
		return nil, fmt.Errorf("docservice: %s is not a document path: %w", to, apperr.ErrInvalidPath)
	}
	data, err := s.read(store, from)
	if err != nil {
		return nil, err
	}
	if _, err := store.Read(to); err == nil {
		return nil, fmt.Errorf("docservice: %s: %w", to, apperr.ErrAlreadyExists)
	}
	if err := store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(project, from); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, project, to, data); err != nil {
		return nil, err
	}
	s.publish(index.EventDeleted, project, from)
	s.publish(index.EventCreated, project, to)
	return s.detail(project, to, data), nil
}

// FindRecords looks up record definitions by kind and id; empty arguments
// match everything.
func (s *Service) FindRecords(_ context.Context, project, kind, id string) ([]models.RecordRef, error) {
	if _, err := s.provider(project); err != nil {
		return nil, err
	}
	refs, err := s.db.FindRecords(project, kind, id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(refs), nil
}

// Search runs a full-text query over one project.
func (s *Service) Search(_ context.Context, project, query string, limit int) ([]models.SearchResult, error) {
	if _, err := s.provider(project); err != nil {
		return nil, err
	}
	results, err := s.db.Search(project, query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

func (s *Service) write(store storage.Provider, project, path string, content []byte) error {
	if err := store.Write(path, content); err != nil {
		return err
	}
	return index.IndexDocument(s.db, project, path, content)
}

// detail builds a DocumentDetail from raw data without re-reading the file.
func (s *Service) detail(project, path string, data []byte) *DocumentDetail {
	doc := s.parse(path, data)
	n := bkn.Assemble([]bkn.Document{doc})
	return &DocumentDetail{
		Project:     project,
		Path:        path,
		Content:     doc.RawContent,
		Checksum:    checksum.Sum(data),
		Frontmatter: doc.Frontmatter,
		Records:     nonNilSlice(index.Records(project, n)),
		Diagnostics: nonNilSlice(n.Diagnostics),
		UpdatedAt:   time.Now().UTC(),
	}
}

// ImportDocument stores data, decoded to UTF-8, as a new document. It
// returns the detected source encoding.
func (s *Service) ImportDocument(ctx context.Context, project, path string, data []byte) (*DocumentDetail, string, error) {
	text, enc := textenc.Decode(data)
	d, err := s.CreateDocument(ctx, project, path, []byte(text))
	if err != nil {
		return nil, "", err
	}
	return d, enc, nil
}
