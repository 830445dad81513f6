package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/docservice"
	"github.com/starford/bkn/internal/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. entities%2Fpod.bkn).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func projectID(r *http.Request) string {
	return chi.URLParam(r, "project")
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.Projects(r.Context())
	if err != nil {
		writeServiceError(w, err, "list projects")
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create an empty project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), models.Project{ID: req.ID, Name: req.Name, Description: req.Description})
	if err != nil {
		writeServiceError(w, err, "create project", slog.String("project", req.ID))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{project}.
//
//	@Summary		Get project metadata
//	@Tags			projects
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Success		200		{object}	models.Project
//	@Failure		404		{object}	errResponse
//	@Router			/projects/{project} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Project(r.Context(), projectID(r))
	if err != nil {
		writeServiceError(w, err, "get project", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{project}.
//
//	@Summary		Delete a project and all of its documents
//	@Tags			projects
//	@Param			project	path	string	true	"Project id"
//	@Success		204		"Project deleted"
//	@Failure		404		{object}	errResponse
//	@Router			/projects/{project} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), projectID(r)); err != nil {
		writeServiceError(w, err, "delete project", slog.String("project", projectID(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments handles GET /api/projects/{project}/documents.
//
//	@Summary		List the documents of a project
//	@Tags			documents
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			type	query		string	false	"Filter by document type"	Enums(network, entity, relation, action, fragment, delete)
//	@Success		200		{object}	DocumentListResponse
//	@Router			/projects/{project}/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context(), projectID(r), r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, err, "list documents", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// GetDocument handles GET /api/projects/{project}/documents/*.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Router			/projects/{project}/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), projectID(r), path)
	if err != nil {
		writeServiceError(w, err, "get document", slog.String("project", projectID(r)), slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/projects/{project}/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			project	path		string					true	"Project id"
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/projects/{project}/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), projectID(r), req.Path, []byte(req.Content))
	if err != nil {
		writeServiceError(w, err, "create document", slog.String("project", projectID(r)), slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/projects/{project}/documents/*.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			project		path		string					true	"Project id"
//	@Param			path		path		string					true	"Document path"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Updated content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/projects/{project}/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateDocumentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	doc, err := h.svc.UpdateDocument(r.Context(), projectID(r), path, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeServiceError(w, err, "update document", slog.String("project", projectID(r)), slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/projects/{project}/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			project	path	string	true	"Project id"
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Router			/projects/{project}/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), projectID(r), path); err != nil {
		writeServiceError(w, err, "delete document", slog.String("project", projectID(r)), slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument handles POST /api/projects/{project}/move.
//
//	@Summary		Rename a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			project	path		string				true	"Project id"
//	@Param			body	body		MoveDocumentRequest	true	"Source and destination paths"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/projects/{project}/move [post]
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	doc, err := h.svc.MoveDocument(r.Context(), projectID(r), req.From, req.To)
	if err != nil {
		writeServiceError(w, err, "move document", slog.String("project", projectID(r)), slog.String("from", req.From), slog.String("to", req.To))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
