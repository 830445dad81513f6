package api

import (
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// maxUploadBytes caps imported document size.
const maxUploadBytes = 10 << 20

// ImportDocument handles POST /api/projects/{project}/import
// (multipart/form-data, field "file", optional field "path").
//
//	@Summary		Import a document file, converting it to UTF-8
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			project	path		string	true	"Project id"
//	@Param			file	formData	file	true	"Document file"
//	@Param			path	formData	string	false	"Destination path, defaults to the file name"
//	@Success		201		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/projects/{project}/import [post]
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	dest := strings.TrimSpace(r.FormValue("path"))
	if dest == "" {
		dest = path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	doc, enc, err := h.svc.ImportDocument(r.Context(), projectID(r), dest, data)
	if err != nil {
		writeServiceError(w, err, "import document", slog.String("project", projectID(r)), slog.String("path", dest))
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Document: doc, Encoding: enc, Size: int64(len(data))})
}
