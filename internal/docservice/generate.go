package docservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/generate"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/storage"
)

// GenerateRequest asks for a new document drafted from the project's files.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	// CurrentPath names the document being edited; its content becomes the
	// prompt's current file.
	CurrentPath string `json:"currentPath,omitempty"`
	// CurrentFile is unsaved editor content. It wins over CurrentPath.
	CurrentFile string `json:"currentFile,omitempty"`
	// SaveAs, when set, stores the finished document at this path.
	SaveAs string `json:"saveAs,omitempty"`
}

// Generate streams a drafted document through emit. The document is saved
// only after the stream has completed, so a cancelled request writes nothing.
func (s *Service) Generate(ctx context.Context, project string, req GenerateRequest, emit func(string) error) (generate.Result, error) {
	if req.SaveAs != "" && !storage.Matches(s.patterns, req.SaveAs) {
		return generate.Result{}, fmt.Errorf("docservice: %s is not a document path: %w", req.SaveAs, apperr.ErrInvalidPath)
	}
	files, err := s.Files(ctx, project)
	if err != nil {
		return generate.Result{}, err
	}
	current := req.CurrentFile
	if current == "" && req.CurrentPath != "" {
		current = files[req.CurrentPath]
	}

	res, err := s.gen.Generate(ctx, generate.Request{
		Prompt: req.Prompt,
		Context: generate.Context{
			DataSourcesSummary: s.catalog.Summary(),
			ExistingFiles:      files,
			CurrentFile:        current,
		},
	}, emit)
	if err != nil {
		return generate.Result{}, err
	}

	if req.SaveAs != "" {
		store, err := s.provider(project)
		if err != nil {
			return res, err
		}
		_, exists := files[req.SaveAs]
		if err := s.write(store, project, req.SaveAs, []byte(res.Text)); err != nil {
			return res, err
		}
		kind := index.EventCreated
		if exists {
			kind = index.EventUpdated
		}
		s.publish(kind, project, req.SaveAs)
		s.logger.Info("docservice: saved generated document",
			slog.String("project", project),
			slog.String("path", req.SaveAs),
			slog.Bool("fallback", res.Fallback))
	}
	return res, nil
}
