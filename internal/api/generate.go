package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/bkn/internal/generate"
)

// Generate handles POST /api/projects/{project}/generate.
//
//	@Summary		Draft a BKN document from a prompt
//	@Description	Streams the document as plain text. With saveAs set, the
//	@Description	finished document is stored once the stream completes.
//	@Tags			generate
//	@Accept			json
//	@Produce		plain
//	@Param			project	path		string			true	"Project id"
//	@Param			body	body		GenerateRequest	true	"Prompt and editor context"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Router			/projects/{project}/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("prompt is required"))
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	emit := func(chunk string) error {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	res, err := h.svc.Generate(r.Context(), projectID(r), req, emit)
	if err != nil {
		if started {
			// Headers are gone; the client sees a truncated body.
			slog.Error("generate stream failed", slog.String("project", projectID(r)), slog.String("error", err.Error()))
			return
		}
		if errors.Is(err, generate.ErrEmptyPrompt) {
			writeJSON(w, http.StatusBadRequest, errorBody("prompt is required"))
			return
		}
		writeServiceError(w, err, "generate", slog.String("project", projectID(r)))
		return
	}
	slog.Info("generated document",
		slog.String("project", projectID(r)),
		slog.String("request_id", res.ID),
		slog.Bool("fallback", res.Fallback),
		slog.Int("bytes", len(res.Text)))
}
