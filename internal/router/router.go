package router

import (
	"net/http"

	"product-panel/internal/handler"
	"product-panel/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the panel.
type Handlers struct {
	Catalog       *handler.CatalogHandler
	Editor        *handler.EditorHandler
	Page          *handler.PageHandler
	Notifications *handler.NotificationHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, corsOrigin string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(corsOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Get("/", h.Page.Index)
	r.Get("/editor/preview", h.Page.Preview)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Catalog.List)
		r.Get("/products/{id}", h.Catalog.Get)
		r.Delete("/products/{id}", h.Catalog.Delete)
		r.Put("/search", h.Catalog.Search)
		r.Post("/export", h.Catalog.Export)

		r.Get("/notifications", h.Notifications.Drain)

		r.Route("/editor", func(r chi.Router) {
			r.Get("/", h.Editor.State)
			r.Post("/", h.Editor.Open)
			r.Delete("/", h.Editor.Close)
			r.Patch("/fields/{field}", h.Editor.UpdateField)
			r.Put("/specifications/{key}", h.Editor.SetSpecification)
			r.Delete("/specifications/{key}", h.Editor.RemoveSpecification)
			r.Post("/image", h.Editor.UploadImage)
			r.Post("/image/remote", h.Editor.LoadRemoteImage)
			r.Delete("/image", h.Editor.ClearImage)
			r.Post("/submit", h.Editor.Submit)
			r.Post("/export", h.Editor.ExportPreview)
		})
	})

	return r
}
