package api

import (
	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/docservice"
	"github.com/starford/bkn/internal/models"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	ID          string `json:"id" example:"k8s-topology"`
	Name        string `json:"name" example:"K8s 拓扑" validate:"required"`
	Description string `json:"description" example:"集群拓扑知识网络"`
}

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"entities/pod.bkn" validate:"required"`
	Content string `json:"content" example:"---\ntype: entity\nid: pod\n---\n" validate:"required"`
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"## Entity: pod\n" validate:"required"`
}

// MoveDocumentRequest renames a document.
type MoveDocumentRequest struct {
	From string `json:"from" example:"pod.bkn" validate:"required"`
	To   string `json:"to" example:"entities/pod.bkn" validate:"required"`
}

// ParseRequest carries documents to assemble without storing them.
type ParseRequest struct {
	Files map[string]string `json:"files" validate:"required"`
	// Order lists the paths in assembly order. Missing paths follow in
	// lexical order.
	Order []string `json:"order,omitempty"`
}

// PreviewRequest carries unsaved content to render.
type PreviewRequest struct {
	Content string `json:"content" validate:"required"`
}

// PreviewResponse is rendered HTML.
type PreviewResponse struct {
	HTML string `json:"html" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// GenerateRequest is the generation request (aliased from the domain layer).
type GenerateRequest = docservice.GenerateRequest

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.DocumentSummary `json:"documents" validate:"required"`
	Total     int                      `json:"total" example:"5" validate:"required"`
}

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects" validate:"required"`
}

// RecordListResponse wraps record lookups.
type RecordListResponse struct {
	Records []models.RecordRef `json:"records" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// DiagnosticsResponse wraps the diagnostics of a network.
type DiagnosticsResponse struct {
	Diagnostics []bkn.Diagnostic `json:"diagnostics" validate:"required"`
}

// ImportResponse is returned after a successful import.
type ImportResponse struct {
	Document *DocumentDetail `json:"document" validate:"required"`
	Encoding string          `json:"encoding" example:"gb18030" validate:"required"`
	Size     int64           `json:"size" example:"12345" validate:"required"`
}
