package handler

import (
	"errors"
	"io"
	"net/http"

	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of an upload is kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// EditorHandler handles editor dialog HTTP requests.
type EditorHandler struct {
	service service.EditorService
	logger  zerolog.Logger
}

// NewEditorHandler creates a new editor handler.
func NewEditorHandler(service service.EditorService, logger zerolog.Logger) *EditorHandler {
	return &EditorHandler{
		service: service,
		logger:  logger.With().Str("handler", "editor").Logger(),
	}
}

// OpenRequest is the body of POST /api/editor. An empty ID creates.
type OpenRequest struct {
	ID string `json:"id"`
}

// ValueRequest carries a single field or specification value.
type ValueRequest struct {
	Value string `json:"value"`
}

// RemoteImageRequest names a stored image to load.
type RemoteImageRequest struct {
	Ref string `json:"ref"`
}

// AcceptedResponse acknowledges work that completes later.
type AcceptedResponse struct {
	Status string `json:"status"`
}

// State handles GET /api/editor requests.
func (h *EditorHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Open handles POST /api/editor requests. The body is optional.
func (h *EditorHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	state, err := h.service.Open(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Close handles DELETE /api/editor requests.
func (h *EditorHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context()); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateField handles PATCH /api/editor/fields/{field} requests.
func (h *EditorHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var req ValueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	state, err := h.service.UpdateField(r.Context(), chi.URLParam(r, "field"), req.Value)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// SetSpecification handles PUT /api/editor/specifications/{key} requests.
func (h *EditorHandler) SetSpecification(w http.ResponseWriter, r *http.Request) {
	var req ValueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	state, err := h.service.SetSpecification(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// RemoveSpecification handles DELETE /api/editor/specifications/{key} requests.
func (h *EditorHandler) RemoveSpecification(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.RemoveSpecification(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// UploadImage handles POST /api/editor/image requests carrying a multipart
// "image" file. The image is read in the background.
func (h *EditorHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "multipart form with an image file is required", h.logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "image file is required", h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "failed to read image file", h.logger)
		return
	}

	if err := h.service.LoadImage(r.Context(), imageload.Upload(header.Filename, data)); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "loading"})
}

// LoadRemoteImage handles POST /api/editor/image/remote requests.
func (h *EditorHandler) LoadRemoteImage(w http.ResponseWriter, r *http.Request) {
	var req RemoteImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.Ref == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "ref is required", h.logger)
		return
	}

	if err := h.service.LoadRemoteImage(r.Context(), req.Ref); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "loading"})
}

// ClearImage handles DELETE /api/editor/image requests.
func (h *EditorHandler) ClearImage(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ClearImage(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Submit handles POST /api/editor/submit requests.
func (h *EditorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Submit(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// ExportPreview handles POST /api/editor/export requests.
func (h *EditorHandler) ExportPreview(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ExportPreview(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writePDF(w, result)
}
