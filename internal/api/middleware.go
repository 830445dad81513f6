// Package api implements the BKN REST API using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bkn/internal/apperr"
)

// ProjectCtx rejects requests for unknown projects before they reach a
// project-scoped handler.
func (h *Handler) ProjectCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		project := chi.URLParam(r, "project")
		if _, err := h.svc.Project(r.Context(), project); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("project not found"))
			} else {
				slog.Error("load project failed", slog.String("project", project), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
