// Package docservice coordinates the workspace, the index and the parser:
// document CRUD, network assembly, graph, search, preview and generation.
package docservice

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/datasource"
	"github.com/starford/bkn/internal/generate"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/render"
	"github.com/starford/bkn/internal/storage"
	"github.com/starford/bkn/internal/textenc"
)

// DefaultCacheSize is the number of parsed documents kept in memory.
const DefaultCacheSize = 512

// Notifier receives document change events (index.EventCreated and friends).
type Notifier func(kind, project, path string)

// Service coordinates storage and index operations.
type Service struct {
	ws       storage.Workspace
	db       index.DocumentIndex
	logger   *slog.Logger
	patterns []string
	cache    *lru.Cache[string, bkn.Document]
	renderer *render.Renderer
	catalog  *datasource.Catalog
	gen      *generate.Generator
	notify   Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithCacheSize sets the parse cache capacity.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cache, _ = lru.New[string, bkn.Document](n)
		}
	}
}

// WithPatterns restricts document paths to the given globs.
func WithPatterns(patterns []string) Option {
	return func(s *Service) { s.patterns = patterns }
}

// WithCatalog sets the data source catalog.
func WithCatalog(c *datasource.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithGenerator sets the content generator.
func WithGenerator(g *generate.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithRenderer sets the preview renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithNotifier registers a callback for changes made through the service.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// NewService creates a document service.
func NewService(ws storage.Workspace, db index.DocumentIndex, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{ws: ws, db: db, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache, _ = lru.New[string, bkn.Document](DefaultCacheSize)
	}
	if s.renderer == nil {
		s.renderer = render.New(render.Options{})
	}
	if s.catalog == nil {
		s.catalog = datasource.Default()
	}
	if s.gen == nil {
		s.gen = generate.New(nil, s.catalog, logger)
	}
	return s
}

// Catalog returns the data source catalog.
func (s *Service) Catalog() *datasource.Catalog { return s.catalog }

// provider opens the document store of project.
func (s *Service) provider(project string) (storage.Provider, error) {
	_, store, err := s.ws.Project(project)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// read returns the raw bytes of a document, mapping a missing file to
// apperr.ErrNotFound.
func (s *Service) read(store storage.Provider, path string) ([]byte, error) {
	data, err := store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("docservice: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// parse returns the parsed document for data, served from the cache when
// the same bytes were parsed before at the same path.
func (s *Service) parse(path string, data []byte) bkn.Document {
	key := path + "\x00" + checksum.Sum(data)
	if doc, ok := s.cache.Get(key); ok {
		return doc
	}
	doc := bkn.ReadDocument(path, textenc.String(data))
	s.cache.Add(key, doc)
	return doc
}

func (s *Service) publish(kind, project, path string) {
	if s.notify != nil {
		s.notify(kind, project, path)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
