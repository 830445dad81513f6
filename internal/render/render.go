// Package render turns a document body into an HTML preview.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to HTML. It is stateless and safe for
// concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

// Options tune the renderer.
type Options struct {
	// Unsafe allows raw HTML embedded in documents to pass through.
	Unsafe bool
	// HardWraps renders single newlines as <br>.
	HardWraps bool
}

// New builds a Renderer with GFM tables, autolinks and task lists.
func New(opts Options) *Renderer {
	var rendererOptions []goldmark.Option
	var htmlOptions []renderer.Option
	if opts.Unsafe {
		htmlOptions = append(htmlOptions, html.WithUnsafe())
	}
	if opts.HardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	if len(htmlOptions) > 0 {
		rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(htmlOptions...))
	}

	engine := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}, rendererOptions...)...)
	return &Renderer{engine: engine}
}

// HTML renders markdown to HTML.
func (r *Renderer) HTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("render: convert: %w", err)
	}
	return buf.Bytes(), nil
}
