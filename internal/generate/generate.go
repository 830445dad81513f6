// Package generate drafts BKN documents with a chat-completions model.
// When the model is unavailable a canned document matching the request is
// streamed instead.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/datasource"
)

// ErrEmptyPrompt is returned when the request has no prompt.
var ErrEmptyPrompt = errors.New("generate: prompt is required")

// Request is a generation request.
type Request struct {
	Prompt  string  `json:"prompt"`
	Context Context `json:"context"`
}

// Result describes a finished generation.
type Result struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// Generator resolves mentions, builds the prompt and streams the answer.
type Generator struct {
	client  Client
	catalog *datasource.Catalog
	logger  *slog.Logger
}

// New creates a Generator. client may be nil, in which case every request
// is answered from the canned documents.
func New(client Client, catalog *datasource.Catalog, logger *slog.Logger) *Generator {
	if catalog == nil {
		catalog = datasource.Default()
	}
	return &Generator{client: client, catalog: catalog, logger: logger}
}

// Generate streams the generated document through emit and returns the
// whole text once the stream has completed. A model failure before any
// output switches to the canned document; a failure after output has been
// emitted is returned.
func (g *Generator) Generate(ctx context.Context, req Request, emit func(string) error) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}
	res := Result{ID: uuid.NewString()}

	gc := req.Context
	if gc.DataSourcesSummary == "" {
		gc.DataSourcesSummary = g.catalog.Summary()
	}
	prompt := ResolveMentions(req.Prompt, gc.ExistingFiles, g.catalog)

	var out strings.Builder
	collect := func(s string) error {
		out.WriteString(s)
		return emit(s)
	}

	err := ErrNotConfigured
	if g.client != nil {
		system, perr := BuildSystemPrompt(bkn.FormatContract, gc)
		if perr != nil {
			return Result{}, perr
		}
		err = g.client.Stream(ctx, []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		}, collect)
	}
	switch {
	case err == nil:
		res.Text = out.String()
		return res, nil
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	case out.Len() > 0:
		return Result{}, fmt.Errorf("generate: stream interrupted: %w", err)
	}

	g.logger.Warn("generate: using fallback document",
		slog.String("request_id", res.ID),
		slog.String("error", err.Error()))
	text := Fallback(req.Prompt)
	if err := replay(ctx, text, collect); err != nil {
		return Result{}, err
	}
	res.Text = text
	res.Fallback = true
	return res, nil
}
