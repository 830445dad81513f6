package docservice

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/graph"
)

// Network assembles every document of project, in path order.
func (s *Service) Network(_ context.Context, project string) (bkn.Network, error) {
	docs, err := s.documents(project)
	if err != nil {
		return bkn.Network{}, err
	}
	return bkn.Assemble(docs), nil
}

// Export returns the network of project without file contents.
func (s *Service) Export(ctx context.Context, project string) (bkn.Export, error) {
	n, err := s.Network(ctx, project)
	if err != nil {
		return bkn.Export{}, err
	}
	return n.Export(), nil
}

// Diagnostics returns the non-fatal problems of project's network.
func (s *Service) Diagnostics(ctx context.Context, project string) ([]bkn.Diagnostic, error) {
	n, err := s.Network(ctx, project)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(n.Diagnostics), nil
}

// Graph materializes project's network for display.
func (s *Service) Graph(ctx context.Context, project string, opts graph.Options) (graph.Graph, error) {
	n, err := s.Network(ctx, project)
	if err != nil {
		return graph.Graph{}, err
	}
	return graph.Materialize(n, opts), nil
}

// Files returns the decoded raw content of every document of project.
func (s *Service) Files(_ context.Context, project string) (map[string]string, error) {
	docs, err := s.documents(project)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(docs))
	for _, d := range docs {
		files[d.Path] = d.RawContent
	}
	return files, nil
}

// Preview renders the body of a stored document as HTML.
func (s *Service) Preview(_ context.Context, project, path string) (string, error) {
	store, err := s.provider(project)
	if err != nil {
		return "", err
	}
	data, err := s.read(store, path)
	if err != nil {
		return "", err
	}
	return s.render(s.parse(path, data))
}

// PreviewContent renders unsaved content as HTML.
func (s *Service) PreviewContent(_ context.Context, content string) (string, error) {
	return s.render(bkn.ReadDocument("", content))
}

func (s *Service) render(doc bkn.Document) (string, error) {
	out, err := s.renderer.HTML([]byte(doc.Content))
	if err != nil {
		return "", fmt.Errorf("docservice: preview %s: %w", doc.Path, err)
	}
	return string(out), nil
}

// documents reads and parses every stored document of project.
func (s *Service) documents(project string) ([]bkn.Document, error) {
	store, err := s.provider(project)
	if err != nil {
		return nil, err
	}
	metas, err := store.List("")
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })

	docs := make([]bkn.Document, 0, len(metas))
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("docservice: read %s: %w", m.Path, err)
		}
		docs = append(docs, s.parse(m.Path, data))
	}
	return docs, nil
}
