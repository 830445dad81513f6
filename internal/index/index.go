package index

import "github.com/starford/bkn/internal/models"

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, records []models.RecordRef) error
	DeleteDocument(project, path string) error
	DeleteProject(project string) error
	GetChecksum(project, path string) (string, error)
	AllChecksums(project string) (map[string]string, error)
	Projects() ([]string, error)
	ListDocuments(project, docType string) ([]models.DocumentSummary, error)
	FindRecords(project, kind, id string) ([]models.RecordRef, error)
	Search(project, query string, limit int) ([]models.SearchResult, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
