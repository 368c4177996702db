package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/eventloop"
	"product-panel/internal/export"
	"product-panel/internal/imageload"
	"product-panel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func creatingSnapshot() *editor.Snapshot {
	return &editor.Snapshot{Mode: catalog.ModeCreating, Draft: model.Product{Specifications: map[string]string{}}}
}

func TestEditorHandler_Open(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		expectService  bool
		productID      string
		mockError      error
		expectedStatus int
	}{
		{
			name:           "No body creates",
			body:           "",
			expectService:  true,
			productID:      "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Edit existing",
			body:           `{"id":"1"}`,
			expectService:  true,
			productID:      "1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unknown product",
			body:           `{"id":"9"}`,
			expectService:  true,
			productID:      "9",
			mockError:      model.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Invalid JSON",
			body:           `{"id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockEditorService)
			handler := NewEditorHandler(mockService, logger)

			if tt.expectService {
				if tt.mockError != nil {
					mockService.On("Open", mock.Anything, tt.productID).Return(nil, tt.mockError)
				} else {
					mockService.On("Open", mock.Anything, tt.productID).Return(creatingSnapshot(), nil)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/api/editor", body(tt.body))
			w := httptest.NewRecorder()

			handler.Open(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestEditorHandler_Close(t *testing.T) {
	mockService := new(MockEditorService)
	handler := NewEditorHandler(mockService, zerolog.Nop())

	mockService.On("Close", mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	handler.Close(w, httptest.NewRequest(http.MethodDelete, "/api/editor", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestEditorHandler_UpdateField(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		field          string
		body           string
		expectService  bool
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Success",
			field:          "title",
			body:           `{"value":"Oak Chair"}`,
			expectService:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unknown field",
			field:          "price",
			body:           `{"value":"10"}`,
			expectService:  true,
			mockError:      model.ErrUnknownField,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Editor closed",
			field:          "title",
			body:           `{"value":"Oak Chair"}`,
			expectService:  true,
			mockError:      model.ErrEditorClosed,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Invalid JSON",
			field:          "title",
			body:           `nope`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockEditorService)
			handler := NewEditorHandler(mockService, logger)

			if tt.expectService {
				var value ValueRequest
				require.NoError(t, json.Unmarshal([]byte(tt.body), &value))
				if tt.mockError != nil {
					mockService.On("UpdateField", mock.Anything, tt.field, value.Value).Return(nil, tt.mockError)
				} else {
					mockService.On("UpdateField", mock.Anything, tt.field, value.Value).Return(creatingSnapshot(), nil)
				}
			}

			req := withURLParams(httptest.NewRequest(http.MethodPatch, "/api/editor/fields/"+tt.field, body(tt.body)), "field", tt.field)
			w := httptest.NewRecorder()

			handler.UpdateField(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestEditorHandler_Specifications(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Set", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		snap := creatingSnapshot()
		snap.Draft.Specifications["Material"] = "Oak"
		mockService.On("SetSpecification", mock.Anything, "Material", "Oak").Return(snap, nil)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/api/editor/specifications/Material", body(`{"value":"Oak"}`)), "key", "Material")
		w := httptest.NewRecorder()

		handler.SetSpecification(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got editor.Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Oak", got.Draft.Specifications["Material"])
	})

	t.Run("Blank key", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		verr := &model.ValidationError{Fields: map[string]string{"specifications": "specification names are required"}}
		mockService.On("SetSpecification", mock.Anything, " ", "Oak").Return(nil, verr)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/api/editor/specifications/%20", body(`{"value":"Oak"}`)), "key", " ")
		w := httptest.NewRecorder()

		handler.SetSpecification(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.ErrCodeValidation, resp.Error)
		assert.Contains(t, resp.Fields, "specifications")
	})

	t.Run("Remove", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		mockService.On("RemoveSpecification", mock.Anything, "Material").Return(creatingSnapshot(), nil)

		req := withURLParams(httptest.NewRequest(http.MethodDelete, "/api/editor/specifications/Material", nil), "key", "Material")
		w := httptest.NewRecorder()

		handler.RemoveSpecification(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestEditorHandler_UploadImage(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Accepted", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		var captured imageload.Source
		mockService.On("LoadImage", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(imageload.Source) }).
			Return(nil)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "chair.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("not really a png"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/editor/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		handler.UploadImage(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "chair.png", captured.Name())
		data, err := captured.Read(req.Context())
		require.NoError(t, err)
		assert.Equal(t, "not really a png", string(data))
	})

	t.Run("Missing file", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("title", "Chair"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/editor/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		handler.UploadImage(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "LoadImage", mock.Anything, mock.Anything)
	})

	t.Run("Not multipart", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		w := httptest.NewRecorder()
		handler.UploadImage(w, httptest.NewRequest(http.MethodPost, "/api/editor/image", body(`{}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Editor closed", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		mockService.On("LoadImage", mock.Anything, mock.Anything).Return(model.ErrEditorClosed)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "chair.png")
		require.NoError(t, err)
		_, err = part.Write([]byte{0x89, 'P', 'N', 'G'})
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/editor/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		handler.UploadImage(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestEditorHandler_LoadRemoteImage(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		expectService  bool
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Accepted",
			body:           `{"ref":"chairs/oak.png"}`,
			expectService:  true,
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "No image store",
			body:           `{"ref":"chairs/oak.png"}`,
			expectService:  true,
			mockError:      model.ErrNoImageStore,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "Workers busy",
			body:           `{"ref":"chairs/oak.png"}`,
			expectService:  true,
			mockError:      fmt.Errorf("failed to start image read: %w", eventloop.ErrBusy),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "Missing ref",
			body:           `{"ref":""}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockEditorService)
			handler := NewEditorHandler(mockService, logger)

			if tt.expectService {
				mockService.On("LoadRemoteImage", mock.Anything, "chairs/oak.png").Return(tt.mockError)
			}

			w := httptest.NewRecorder()
			handler.LoadRemoteImage(w, httptest.NewRequest(http.MethodPost, "/api/editor/image/remote", body(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestEditorHandler_Submit(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Saved", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		mockService.On("Submit", mock.Anything).
			Return(&model.Product{ID: "id-1", Title: "Chair", Category: "Furniture"}, nil)

		w := httptest.NewRecorder()
		handler.Submit(w, httptest.NewRequest(http.MethodPost, "/api/editor/submit", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var product model.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
		assert.Equal(t, "id-1", product.ID)
	})

	t.Run("Validation failure", func(t *testing.T) {
		mockService := new(MockEditorService)
		handler := NewEditorHandler(mockService, logger)

		verr := &model.ValidationError{Fields: map[string]string{
			"title":    "title is required",
			"category": "category is required",
		}}
		mockService.On("Submit", mock.Anything).Return(nil, verr)

		w := httptest.NewRecorder()
		handler.Submit(w, httptest.NewRequest(http.MethodPost, "/api/editor/submit", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "title is required", resp.Fields["title"])
		assert.Equal(t, "category is required", resp.Fields["category"])
	})
}

func TestEditorHandler_ExportPreview(t *testing.T) {
	mockService := new(MockEditorService)
	handler := NewEditorHandler(mockService, zerolog.Nop())

	mockService.On("ExportPreview", mock.Anything).
		Return(&export.Result{Filename: "oak-chair.pdf", Data: []byte("%PDF-1.3"), Pages: 1}, nil)

	w := httptest.NewRecorder()
	handler.ExportPreview(w, httptest.NewRequest(http.MethodPost, "/api/editor/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="oak-chair.pdf"`, w.Header().Get("Content-Disposition"))
}
