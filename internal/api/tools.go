package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bkn/internal/bkn"
)

// Parse handles POST /api/parse.
//
//	@Summary		Assemble a network from documents sent in the request
//	@Tags			parse
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ParseRequest	true	"Documents keyed by path"
//	@Success		200		{object}	bkn.Network
//	@Failure		400		{object}	errResponse
//	@Router			/parse [post]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, bkn.ParseNetwork(parseOrder(req), req.Files))
}

// parseOrder returns the requested order restricted to known paths, followed
// by the remaining paths in lexical order.
func parseOrder(req ParseRequest) []string {
	seen := make(map[string]bool, len(req.Files))
	paths := make([]string, 0, len(req.Files))
	for _, p := range req.Order {
		if _, ok := req.Files[p]; ok && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	rest := make([]string, 0, len(req.Files)-len(paths))
	for p := range req.Files {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	return append(paths, rest...)
}

// PreviewContent handles POST /api/preview.
//
//	@Summary		Render unsaved document content as HTML
//	@Tags			parse
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreviewRequest	true	"Content to render"
//	@Success		200		{object}	PreviewResponse
//	@Failure		400		{object}	errResponse
//	@Router			/preview [post]
func (h *Handler) PreviewContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	html, err := h.svc.PreviewContent(r.Context(), req.Content)
	if err != nil {
		writeServiceError(w, err, "preview content")
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{HTML: html})
}

// Format handles GET /api/format.
//
//	@Summary		Get the BKN document format contract
//	@Tags			parse
//	@Produce		text/markdown
//	@Success		200	{string}	string
//	@Router			/format [get]
func (h *Handler) Format(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(bkn.FormatContract))
}

// ListDataSources handles GET /api/datasources.
//
//	@Summary		List the data views documents can bind to
//	@Tags			datasources
//	@Produce		json
//	@Success		200	{array}	datasource.Source
//	@Router			/datasources [get]
func (h *Handler) ListDataSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog().All())
}

// GetDataSource handles GET /api/datasources/{id}.
//
//	@Summary		Get one data view by id or name
//	@Tags			datasources
//	@Produce		json
//	@Param			id	path		string	true	"Data view id or name"
//	@Success		200	{object}	datasource.Source
//	@Failure		404	{object}	errResponse
//	@Router			/datasources/{id} [get]
func (h *Handler) GetDataSource(w http.ResponseWriter, r *http.Request) {
	src, ok := h.svc.Catalog().Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, src)
}
