package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/handler"
	"product-panel/internal/model"
	"product-panel/internal/notify"
	"product-panel/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, server *TestServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()

	server.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func editorState(t *testing.T, server *TestServer) editor.Snapshot {
	t.Helper()

	w := do(t, server, http.MethodGet, "/api/editor", "")
	require.Equal(t, http.StatusOK, w.Code)
	return decode[editor.Snapshot](t, w)
}

func messages(t *testing.T, server *TestServer) []string {
	t.Helper()

	w := do(t, server, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []string
	for _, n := range decode[[]notify.Notification](t, w) {
		out = append(out, n.Message)
	}
	return out
}

func TestHealth_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	server := SetupTestServer(t)

	w := do(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCatalogAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	t.Run("GET /api/products returns all products", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodGet, "/api/products", "")
		assert.Equal(t, http.StatusOK, w.Code)

		view := decode[service.CatalogView](t, w)
		assert.Len(t, view.Products, 5)
		assert.Equal(t, 5, view.Total)
		assert.Equal(t, catalog.ModeClosed, view.Editor.Mode)
	})

	t.Run("PUT /api/search filters case-insensitively", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodPut, "/api/search", `{"term":"CATEGORY a"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		view := decode[service.CatalogView](t, w)
		require.Len(t, view.Products, 2)
		assert.Equal(t, "P001", view.Products[0].ID)
		assert.Equal(t, "P003", view.Products[1].ID)
		assert.Equal(t, 5, view.Total)

		// The term sticks until replaced.
		list := decode[service.CatalogView](t, do(t, server, http.MethodGet, "/api/products", ""))
		assert.Len(t, list.Products, 2)

		w = do(t, server, http.MethodPut, "/api/search", `{"term":"strasse"}`)
		view = decode[service.CatalogView](t, w)
		require.Len(t, view.Products, 1)
		assert.Equal(t, "P004", view.Products[0].ID)

		w = do(t, server, http.MethodPut, "/api/search", `{"term":""}`)
		assert.Len(t, decode[service.CatalogView](t, w).Products, 5)
	})

	t.Run("GET /api/products/{id}", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodGet, "/api/products/P002", "")
		assert.Equal(t, http.StatusOK, w.Code)
		product := decode[model.Product](t, w)
		assert.Equal(t, "Test Product 2", product.Title)
		assert.Equal(t, "Oak", product.Specifications["Material"])

		w = do(t, server, http.MethodGet, "/api/products/P999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DELETE /api/products/{id} is idempotent", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodDelete, "/api/products/P001", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[handler.DeleteResponse](t, w).Deleted)

		w = do(t, server, http.MethodDelete, "/api/products/P001", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[handler.DeleteResponse](t, w).Deleted)

		assert.Equal(t, []string{"Product deleted successfully!"}, messages(t, server))
		assert.Len(t, decode[service.CatalogView](t, do(t, server, http.MethodGet, "/api/products", "")).Products, 4)
	})

	t.Run("POST /api/export downloads the catalog", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodPost, "/api/export", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="product-catalog.pdf"`, w.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

		assert.Equal(t, []string{"Catalog exported successfully!"}, messages(t, server))
	})
}

func TestEditorAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	t.Run("create a product", func(t *testing.T) {
		server := SetupTestServer(t)

		w := do(t, server, http.MethodPost, "/api/editor", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, catalog.ModeCreating, decode[editor.Snapshot](t, w).Mode)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPatch, "/api/editor/fields/title", `{"value":"Oak Chair"}`).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPatch, "/api/editor/fields/category", `{"value":"Furniture"}`).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPut, "/api/editor/specifications/Material", `{"value":"Oak"}`).Code)

		w = do(t, server, http.MethodPost, "/api/editor/submit", "")
		require.Equal(t, http.StatusOK, w.Code)
		saved := decode[model.Product](t, w)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "Oak Chair", saved.Title)
		assert.Equal(t, "Oak", saved.Specifications["Material"])

		assert.Equal(t, catalog.ModeClosed, editorState(t, server).Mode)
		assert.Equal(t, []string{"Product saved successfully!"}, messages(t, server))

		view := decode[service.CatalogView](t, do(t, server, http.MethodGet, "/api/products", ""))
		require.Len(t, view.Products, 6)
		assert.Equal(t, saved.ID, view.Products[5].ID)
	})

	t.Run("edit replaces the product in place", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P002"}`).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodDelete, "/api/editor/specifications/Material", "").Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPatch, "/api/editor/fields/title", `{"value":"Renamed"}`).Code)

		w := do(t, server, http.MethodPost, "/api/editor/submit", "")
		require.Equal(t, http.StatusOK, w.Code)

		view := decode[service.CatalogView](t, do(t, server, http.MethodGet, "/api/products", ""))
		require.Len(t, view.Products, 5)
		assert.Equal(t, "P002", view.Products[1].ID)
		assert.Equal(t, "Renamed", view.Products[1].Title)
		assert.Empty(t, view.Products[1].Specifications)
	})

	t.Run("invalid submit keeps the editor open", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", "").Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPatch, "/api/editor/fields/title", `{"value":"   "}`).Code)

		w := do(t, server, http.MethodPost, "/api/editor/submit", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[model.ErrorResponse](t, w)
		assert.Equal(t, model.ErrCodeValidation, resp.Error)
		assert.Contains(t, resp.Fields, "title")
		assert.Contains(t, resp.Fields, "category")

		assert.Equal(t, catalog.ModeCreating, editorState(t, server).Mode)
		assert.Len(t, decode[service.CatalogView](t, do(t, server, http.MethodGet, "/api/products", "")).Products, 5)
	})

	t.Run("closing discards the draft", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P001"}`).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPatch, "/api/editor/fields/title", `{"value":"Changed"}`).Code)
		require.Equal(t, http.StatusNoContent, do(t, server, http.MethodDelete, "/api/editor", "").Code)

		product := decode[model.Product](t, do(t, server, http.MethodGet, "/api/products/P001", ""))
		assert.Equal(t, "Test Product 1", product.Title)

		w := do(t, server, http.MethodPatch, "/api/editor/fields/title", `{"value":"Late"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown field and unknown product", func(t *testing.T) {
		server := SetupTestServer(t)

		assert.Equal(t, http.StatusNotFound, do(t, server, http.MethodPost, "/api/editor", `{"id":"P999"}`).Code)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", "").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, server, http.MethodPatch, "/api/editor/fields/image", `{"value":"x"}`).Code)
	})

	t.Run("upload an image", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P001"}`).Code)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "chair.png")
		require.NoError(t, err)
		_, err = part.Write(PNG(t, 2, 2))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/editor/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		server.Handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)

		require.Eventually(t, func() bool {
			state := editorState(t, server)
			return !state.ImagePending && strings.HasPrefix(state.Draft.Image, "data:image/png;base64,")
		}, 5*time.Second, 10*time.Millisecond)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor/submit", "").Code)
		product := decode[model.Product](t, do(t, server, http.MethodGet, "/api/products/P001", ""))
		assert.True(t, strings.HasPrefix(product.Image, "data:image/png;base64,"))
	})

	t.Run("load a stored image by reference", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", "").Code)
		require.Equal(t, http.StatusAccepted, do(t, server, http.MethodPost, "/api/editor/image/remote", `{"ref":"chair.png"}`).Code)

		require.Eventually(t, func() bool {
			return strings.HasPrefix(editorState(t, server).Draft.Image, "data:image/png;base64,")
		}, 5*time.Second, 10*time.Millisecond)

		w := do(t, server, http.MethodDelete, "/api/editor/image", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[editor.Snapshot](t, w).Draft.Image)
	})

	t.Run("missing stored image raises an error notification", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", "").Code)
		require.Equal(t, http.StatusAccepted, do(t, server, http.MethodPost, "/api/editor/image/remote", `{"ref":"missing.png"}`).Code)

		require.Eventually(t, func() bool {
			return server.Feed.Pending() == 1
		}, 5*time.Second, 10*time.Millisecond)

		assert.Equal(t, []string{"Failed to load the image"}, messages(t, server))
		state := editorState(t, server)
		assert.False(t, state.ImagePending)
		assert.Empty(t, state.Draft.Image)
	})

	t.Run("export the draft preview", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P002"}`).Code)

		w := do(t, server, http.MethodPost, "/api/editor/export", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="test-product-2.pdf"`, w.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

		assert.Equal(t, []string{"Preview exported successfully!"}, messages(t, server))
		assert.Equal(t, catalog.ModeEditing, editorState(t, server).Mode)
	})

	t.Run("deleting the edited product closes the editor", func(t *testing.T) {
		server := SetupTestServer(t)

		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P003"}`).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodDelete, "/api/products/P003", "").Code)

		assert.Equal(t, catalog.ModeClosed, editorState(t, server).Mode)
	})
}

func TestPages_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	server := SetupTestServer(t)

	w := do(t, server, http.MethodGet, "/?q=category+b", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Test Product 2")
	assert.Contains(t, body, "Test Product 5")
	assert.NotContains(t, body, "Test Product 1")

	assert.Equal(t, http.StatusConflict, do(t, server, http.MethodGet, "/editor/preview", "").Code)

	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/editor", `{"id":"P004"}`).Code)
	w = do(t, server, http.MethodGet, "/editor/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Test Product 4")
}
