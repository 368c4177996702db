package integration

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/eventloop"
	"product-panel/internal/export"
	"product-panel/internal/handler"
	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/notify"
	"product-panel/internal/router"
	"product-panel/internal/service"
	"product-panel/internal/view"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// TestServer is a fully wired panel behind its HTTP router.
type TestServer struct {
	Handler  http.Handler
	Feed     *notify.Feed
	ImageDir string
}

// SetupTestServer wires the panel with the native exporter, an image
// directory holding chair.png, and the seed products.
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chair.png"), PNG(t, 4, 3), 0o644))

	images := imageload.NewLoader(logger)
	fetcher := imageload.NewFileFetcher(dir, logger)

	renderer, err := view.NewRenderer(logger)
	require.NoError(t, err)

	exporter := export.NewCoalescing(export.NewNativeExporter(logger), logger)
	feed := notify.NewFeed(notify.DefaultCapacity, logger)

	store := catalog.New(feed, exporter, logger)
	require.NoError(t, store.Load(SeedProducts()))

	loop, err := eventloop.New(eventloop.Config{}, logger)
	require.NoError(t, err)
	go loop.Run(ctx)

	dialog := editor.New(store, images, loop, exporter, feed, logger)
	panel := service.NewPanel(loop, store, dialog, fetcher, export.DefaultConfig(), logger)

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		loop.Shutdown(shutdownCtx)
		cancel()
	})

	mux := router.New(router.Handlers{
		Catalog:       handler.NewCatalogHandler(panel, logger),
		Editor:        handler.NewEditorHandler(panel, logger),
		Page:          handler.NewPageHandler(panel, panel, renderer, logger),
		Notifications: handler.NewNotificationHandler(feed, logger),
	}, "*", logger)

	return &TestServer{Handler: mux, Feed: feed, ImageDir: dir}
}

// SeedProducts returns the products every test starts with.
func SeedProducts() []model.Product {
	return []model.Product{
		{ID: "P001", Title: "Test Product 1", Category: "Category A", Dimensions: "10x10cm"},
		{ID: "P002", Title: "Test Product 2", Category: "Category B", Specifications: map[string]string{"Material": "Oak"}},
		{ID: "P003", Title: "Test Product 3", Category: "Category A", Description: "Limited edition"},
		{ID: "P004", Title: "Test Product 4", Category: "Straßenmöbel"},
		{ID: "P005", Title: "Test Product 5", Category: "Category B"},
	}
}

// PNG encodes a solid w x h image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
