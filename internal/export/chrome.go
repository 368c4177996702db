package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const defaultChromeTimeout = 30 * time.Second

// ChromeConfig contains configuration for the headless Chrome exporter.
type ChromeConfig struct {
	// Timeout bounds a single render.
	Timeout time.Duration
	// RemoteURL is the DevTools URL of a running Chrome instance (optional).
	// If empty, a local browser is launched.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root).
	NoSandbox bool
}

// ChromeExporter prints the HTML rendering of a target with headless Chrome.
type ChromeExporter struct {
	config      ChromeConfig
	html        HTMLRenderer
	logger      zerolog.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeExporter creates a chromedp-based exporter.
func NewChromeExporter(cfg ChromeConfig, html HTMLRenderer, logger zerolog.Logger) *ChromeExporter {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultChromeTimeout
	}

	e := &ChromeExporter{
		config: cfg,
		html:   html,
		logger: logger.With().Str("component", "pdf-chrome").Logger(),
	}

	if cfg.RemoteURL != "" {
		e.allocCtx, e.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("font-render-hinting", "none"),
		)
		if cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return e
}

// printParams holds the parameters for PDF printing.
type printParams struct {
	paperWidth   float64
	paperHeight  float64
	margin       float64
	landscape    bool
	viewportW    int64
	viewportH    int64
	deviceFactor float64
}

// buildPrintParams converts an export config into Chrome print parameters.
// Chrome takes paper size and margins in inches.
func buildPrintParams(cfg Config) printParams {
	w, h := cfg.PaperFormat.Dimensions()
	pageW, pageH := cfg.PageSize()
	return printParams{
		paperWidth:   w,
		paperHeight:  h,
		margin:       cfg.MarginInches,
		landscape:    cfg.Orientation == OrientationLandscape,
		viewportW:    int64(math.Round((pageW - 2*cfg.MarginInches) * 96)),
		viewportH:    int64(math.Round((pageH - 2*cfg.MarginInches) * 96)),
		deviceFactor: cfg.RenderScale,
	}
}

// Export renders target to HTML and prints it to PDF.
func (e *ChromeExporter) Export(ctx context.Context, target RenderTarget, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export config: %w", err)
	}

	start := time.Now()

	target.Products = compressImages(target.Products, cfg.ImageQuality)
	html, err := e.html.RenderTarget(target)
	if err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(e.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			e.logger.Debug().Msgf(format, args...)
		}),
	)
	defer browserCancel()

	// Tie the browser tab to the caller's deadline and cancellation.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	params := buildPrintParams(cfg)

	var pdfData []byte
	err = chromedp.Run(browserCtx,
		emulation.SetDeviceMetricsOverride(params.viewportW, params.viewportH, params.deviceFactor, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(params.paperWidth).
				WithPaperHeight(params.paperHeight).
				WithMarginTop(params.margin).
				WithMarginRight(params.margin).
				WithMarginBottom(params.margin).
				WithMarginLeft(params.margin).
				WithLandscape(params.landscape).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("PDF rendering timed out after %v: %w", e.config.Timeout, err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("PDF rendering was cancelled: %w", ctx.Err())
		}
		e.logger.Error().Err(err).Msg("chromedp rendering failed")
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}

	if len(pdfData) == 0 {
		return nil, fmt.Errorf("generated PDF is empty")
	}

	result := &Result{
		Filename: cfg.Filename,
		Data:     pdfData,
		Pages:    estimatePageCount(pdfData),
	}

	e.logger.Info().
		Str("filename", result.Filename).
		Int("bytes", len(pdfData)).
		Int("pages", result.Pages).
		Dur("duration", time.Since(start)).
		Msg("PDF rendered successfully")

	return result, nil
}

// Close releases the browser allocator.
func (e *ChromeExporter) Close() error {
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

// Ensure exporters implement Exporter
var (
	_ Exporter = (*ChromeExporter)(nil)
	_ Exporter = (*NativeExporter)(nil)
)
