package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/bkn/internal/graph"
)

// Network handles GET /api/projects/{project}/network.
//
//	@Summary		Assemble the project's knowledge network
//	@Tags			network
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Success		200		{object}	bkn.Network
//	@Router			/projects/{project}/network [get]
func (h *Handler) Network(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Network(r.Context(), projectID(r))
	if err != nil {
		writeServiceError(w, err, "network", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Export handles GET /api/projects/{project}/export.
//
//	@Summary		Download the network as JSON without file contents
//	@Tags			network
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Success		200		{object}	bkn.Export
//	@Router			/projects/{project}/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Export(r.Context(), projectID(r))
	if err != nil {
		writeServiceError(w, err, "export", slog.String("project", projectID(r)))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.ID+".json"))
	writeJSON(w, http.StatusOK, e)
}

// Graph handles GET /api/projects/{project}/graph.
//
//	@Summary		Get the laid-out network graph
//	@Tags			network
//	@Produce		json
//	@Param			project			path		string	true	"Project id"
//	@Param			keepUnresolved	query		bool	false	"Keep edges whose endpoints are missing"
//	@Success		200				{object}	graph.Graph
//	@Router			/projects/{project}/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	opts := graph.DefaultOptions()
	opts.KeepUnresolved, _ = strconv.ParseBool(r.URL.Query().Get("keepUnresolved"))
	g, err := h.svc.Graph(r.Context(), projectID(r), opts)
	if err != nil {
		writeServiceError(w, err, "graph", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Diagnostics handles GET /api/projects/{project}/diagnostics.
//
//	@Summary		List records dropped or repaired during assembly
//	@Tags			network
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Success		200		{object}	DiagnosticsResponse
//	@Router			/projects/{project}/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.svc.Diagnostics(r.Context(), projectID(r))
	if err != nil {
		writeServiceError(w, err, "diagnostics", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{Diagnostics: diags})
}

// Records handles GET /api/projects/{project}/records.
//
//	@Summary		Find entity, relation and action definitions
//	@Tags			network
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			kind	query		string	false	"Record kind"	Enums(entity, relation, action)
//	@Param			id		query		string	false	"Record id"
//	@Success		200		{object}	RecordListResponse
//	@Router			/projects/{project}/records [get]
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refs, err := h.svc.FindRecords(r.Context(), projectID(r), q.Get("kind"), q.Get("id"))
	if err != nil {
		writeServiceError(w, err, "find records", slog.String("project", projectID(r)))
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: refs})
}

// Search handles GET /api/projects/{project}/search.
//
//	@Summary		Full-text search across a project's documents
//	@Tags			search
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/projects/{project}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), projectID(r), q, limit)
	if err != nil {
		writeServiceError(w, err, "search", slog.String("project", projectID(r)), slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Preview handles GET /api/projects/{project}/preview/*.
//
//	@Summary		Render a stored document as HTML
//	@Tags			documents
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	PreviewResponse
//	@Failure		404		{object}	errResponse
//	@Router			/projects/{project}/preview/{path} [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	html, err := h.svc.Preview(r.Context(), projectID(r), path)
	if err != nil {
		writeServiceError(w, err, "preview", slog.String("project", projectID(r)), slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{HTML: html})
}
