package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"product-panel/internal/eventloop"
	"product-panel/internal/export"
	"product-panel/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error to a status code and error body.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		logger.Debug().Err(err).Msg("validation failed")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   verr.Code(),
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
		return
	}

	var derr *model.DomainError
	if errors.As(err, &derr) {
		writeError(w, domainStatus(derr), derr.Code, err.Error(), logger)
		return
	}

	switch {
	case errors.Is(err, eventloop.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "panel is shutting down", logger)
	case errors.Is(err, eventloop.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "panel is busy, retry shortly", logger)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "request cancelled", logger)
	default:
		logger.Error().Err(err).Msg("unexpected service error")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
	}
}

func domainStatus(err *model.DomainError) int {
	switch err.Code {
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeEditorClosed:
		return http.StatusConflict
	case model.ErrCodeUnknownField:
		return http.StatusBadRequest
	case model.ErrCodeUnsupportedImage:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeExportFailed:
		return http.StatusBadGateway
	case model.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writePDF sends an exported document as a download.
func writePDF(w http.ResponseWriter, result *export.Result) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("X-Page-Count", fmt.Sprint(result.Pages))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}
