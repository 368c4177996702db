package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-panel/internal/catalog"
	"product-panel/internal/config"
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
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting product panel")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize image loading with S3 and local fallback
	images := imageload.NewLoader(logger)
	fetcher := newImageFetcher(ctx, cfg, logger)

	// Initialize views and the PDF exporter
	renderer, err := view.NewRenderer(logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}

	var exporter export.Exporter
	switch cfg.Export.Renderer {
	case "chrome":
		chrome := export.NewChromeExporter(export.ChromeConfig{
			Timeout:   cfg.Chrome.Timeout,
			RemoteURL: cfg.Chrome.URL,
			NoSandbox: cfg.Chrome.NoSandbox,
		}, renderer, logger)
		defer chrome.Close()
		exporter = chrome
	default:
		exporter = export.NewNativeExporter(logger)
	}
	exporter = export.NewCoalescing(exporter, logger)
	logger.Info().Str("renderer", cfg.Export.Renderer).Msg("PDF exporter ready")

	// Initialize the catalog
	feed := notify.NewFeed(cfg.Runtime.NotificationCapacity, logger)
	store := catalog.New(feed, exporter, logger)
	if err := seedCatalog(ctx, cfg.Catalog, store, images, fetcher, logger); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	// Start the event loop
	loop, err := eventloop.New(eventloop.Config{
		QueueSize: cfg.Runtime.EventQueueSize,
		Workers:   cfg.Runtime.WorkerPoolSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event loop: %w", err)
	}
	loopErrors := make(chan error, 1)
	go func() {
		loopErrors <- loop.Run(ctx)
	}()

	// Initialize services
	dialog := editor.New(store, images, loop, exporter, feed, logger)
	panel := service.NewPanel(loop, store, dialog, fetcher, cfg.Export.PDF(), logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Catalog:       handler.NewCatalogHandler(panel, logger),
		Editor:        handler.NewEditorHandler(panel, logger),
		Page:          handler.NewPageHandler(panel, panel, renderer, logger),
		Notifications: handler.NewNotificationHandler(feed, logger),
	}, cfg.Server.CORSOrigin, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Chrome.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case err := <-loopErrors:
		return fmt.Errorf("event loop stopped: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		if err := loop.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("background work did not finish before shutdown")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newImageFetcher builds the fetcher for images loaded by reference. It
// returns nil when neither S3 nor an image directory is configured.
func newImageFetcher(ctx context.Context, cfg *config.Config, logger zerolog.Logger) imageload.Fetcher {
	var fileFetcher imageload.Fetcher
	if cfg.Images.Dir != "" {
		fileFetcher = imageload.NewFileFetcher(cfg.Images.Dir, logger)
	}

	if !cfg.S3.Enabled {
		if fileFetcher == nil {
			logger.Info().Msg("no image storage configured, only uploads are available")
		} else {
			logger.Info().Str("dir", cfg.Images.Dir).Msg("using local file system for images (S3 disabled)")
		}
		return fileFetcher
	}

	s3Fetcher, err := imageload.NewS3Fetcher(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 image fetcher, falling back to local file system only")
		return fileFetcher
	}

	return imageload.NewFallbackFetcher(s3Fetcher, fileFetcher, cfg.S3.Prefix, true, logger)
}

// seedCatalog fills the store from the seed file, or with the sample
// product when configured.
func seedCatalog(ctx context.Context, cfg config.CatalogConfig, store *catalog.Store, images imageload.Loader, fetcher imageload.Fetcher, logger zerolog.Logger) error {
	var products []model.Product
	switch {
	case cfg.SeedFile != "":
		reader := catalog.NewSeedReader(images, fetcher, logger)
		seeded, err := reader.ReadFile(ctx, cfg.SeedFile)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("file", cfg.SeedFile).Msg("seed file not found, starting with an empty catalog")
			return nil
		}
		if err != nil {
			return err
		}
		products = seeded
	case cfg.SeedSample:
		products = append(products, catalog.SampleProduct())
	}

	return store.Load(products)
}
