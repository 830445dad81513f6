package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bkn/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *docservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Stateless parsing and reference data.
	r.Post("/parse", h.Parse)
	r.Post("/preview", h.PreviewContent)
	r.Get("/format", h.Format)
	r.Get("/datasources", h.ListDataSources)
	r.Get("/datasources/{id}", h.GetDataSource)

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Route("/projects/{project}", func(r chi.Router) {
		r.Use(h.ProjectCtx)

		r.Get("/", h.GetProject)
		r.Delete("/", h.DeleteProject)

		// Documents CRUD.
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/*", h.GetDocument)
		r.Put("/documents/*", h.UpdateDocument)
		r.Delete("/documents/*", h.DeleteDocument)
		r.Post("/move", h.MoveDocument)
		r.Post("/import", h.ImportDocument)

		// Assembled network.
		r.Get("/network", h.Network)
		r.Get("/export", h.Export)
		r.Get("/graph", h.Graph)
		r.Get("/diagnostics", h.Diagnostics)
		r.Get("/records", h.Records)
		r.Get("/search", h.Search)
		r.Get("/preview/*", h.Preview)

		r.Post("/generate", h.Generate)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
