// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes BKN workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bkn/internal/apperr"
	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/docservice"
)

// FormatURI is the resource URI of the document format contract.
const FormatURI = "bkn://format"

// Server wraps the MCP server with BKN tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all BKN tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"BKN",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the knowledge network projects in the workspace."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents of a project, optionally filtered by document type."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("type", mcp.Description("Optional type filter: network, entity, relation, action, fragment or delete")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw content of a BKN document."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. entities/pod.bkn)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("write_document",
		mcp.WithDescription("Create or replace a BKN document. "+
			"Content MUST follow the BKN format (YAML front matter with type and id, "+
			"Markdown body with Entity/Relation/Action sections). Read the contract first via "+
			"the get_format_contract tool or the "+FormatURI+" resource. "+
			"The response lists the records found and any diagnostics."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the document (must end with .bkn or .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document content following the BKN format contract")),
	), s.writeDocument)

	s.mcp.AddTool(mcp.NewTool("parse_network",
		mcp.WithDescription("Assemble a project's documents into a knowledge network and return it as JSON, "+
			"without file contents."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithBoolean("diagnostics_only", mcp.Description("Return only the diagnostics")),
	), s.parseNetwork)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Find entity, relation and action definitions by kind and id, "+
			"or run a full-text query when query is set."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("kind", mcp.Description("Optional record kind: entity, relation or action")),
		mcp.WithString("id", mcp.Description("Optional record id")),
		mcp.WithString("query", mcp.Description("Full-text query; overrides kind and id")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the BKN document format contract. "+
			"Call this before writing documents to ensure correct structure."),
	), s.getFormatContract)

	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Import a Markdown or BKN document from an http(s) URL or a data URI. "+
			"The content is converted to UTF-8 and stored as a new document."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI of the document")),
		mcp.WithString("path", mcp.Description("Destination path; defaults to the file name from the URL")),
	), s.importDocument)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "BKN Format Contract",
			mcp.WithResourceDescription("Document format that every BKN file must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.Projects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects)
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.svc.ListDocuments(ctx, project, req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = fmt.Sprintf("%s\t%s\t%s", d.Path, d.Type, d.ID)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, project, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

type writeResult struct {
	Path        string           `json:"path"`
	Created     bool             `json:"created"`
	Records     any              `json:"records"`
	Diagnostics []bkn.Diagnostic `json:"diagnostics"`
}

func (s *Server) writeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created := false
	doc, err := s.svc.UpdateDocument(ctx, project, path, []byte(content), "")
	if errors.Is(err, apperr.ErrNotFound) {
		created = true
		doc, err = s.svc.CreateDocument(ctx, project, path, []byte(content))
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(writeResult{Path: doc.Path, Created: created, Records: doc.Records, Diagnostics: doc.Diagnostics})
}

func (s *Server) parseNetwork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Network(ctx, project)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("diagnostics_only", false) {
		return jsonResult(n.Diagnostics)
	}
	return jsonResult(struct {
		bkn.Export
		Diagnostics []bkn.Diagnostic `json:"diagnostics"`
	}{n.Export(), n.Diagnostics})
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q := req.GetString("query", ""); q != "" {
		results, err := s.svc.Search(ctx, project, q, 20)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results)
	}
	refs, err := s.svc.FindRecords(ctx, project, req.GetString("kind", ""), req.GetString("id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return jsonResult(refs)
}

func (s *Server) getFormatContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(bkn.FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     bkn.FormatContract,
		},
	}, nil
}
