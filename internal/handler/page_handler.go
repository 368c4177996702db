package handler

import (
	"bytes"
	"net/http"

	"product-panel/internal/catalog"
	"product-panel/internal/model"
	"product-panel/internal/notify"
	"product-panel/internal/service"
	"product-panel/internal/view"

	"github.com/rs/zerolog"
)

// PageHandler serves the HTML views of the panel.
type PageHandler struct {
	catalog  service.CatalogService
	editor   service.EditorService
	renderer *view.Renderer
	logger   zerolog.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(catalog service.CatalogService, editor service.EditorService, renderer *view.Renderer, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		catalog:  catalog,
		editor:   editor,
		renderer: renderer,
		logger:   logger.With().Str("handler", "page").Logger(),
	}
}

// Index handles GET / requests. A q parameter replaces the search term.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("q") {
		if _, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q")); err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
	}

	page, err := h.catalog.Page(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderPage(&buf, page); err != nil {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to render page", h.logger)
		return
	}
	writeHTML(w, buf.Bytes())
}

// Preview handles GET /editor/preview requests.
func (h *PageHandler) Preview(w http.ResponseWriter, r *http.Request) {
	state, err := h.editor.State(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if state.Mode == catalog.ModeClosed {
		writeServiceError(w, model.ErrEditorClosed, h.logger)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderEditor(&buf, *state); err != nil {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to render preview", h.logger)
		return
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// NotificationHandler delivers pending notifications.
type NotificationHandler struct {
	feed   *notify.Feed
	logger zerolog.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(feed *notify.Feed, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		feed:   feed,
		logger: logger.With().Str("handler", "notification").Logger(),
	}
}

// Drain handles GET /api/notifications requests. Each notification is
// delivered once.
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Drain())
}
