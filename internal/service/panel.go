package service

import (
	"context"
	"fmt"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/eventloop"
	"product-panel/internal/export"
	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/view"

	"github.com/rs/zerolog"
)

// panel implements CatalogService and EditorService over one catalog store
// and one editor dialog. Every state transition runs on the event loop;
// exports snapshot their target there and render on the caller's goroutine.
type panel struct {
	loop      *eventloop.Loop
	store     *catalog.Store
	dialog    *editor.Dialog
	images    imageload.Fetcher
	exportCfg export.Config
	logger    zerolog.Logger
}

// Panel is the combined catalog and editor service.
type Panel interface {
	CatalogService
	EditorService
}

// NewPanel creates the panel service. images may be nil when no image
// storage is configured.
func NewPanel(loop *eventloop.Loop, store *catalog.Store, dialog *editor.Dialog, images imageload.Fetcher, exportCfg export.Config, logger zerolog.Logger) Panel {
	return &panel{
		loop:      loop,
		store:     store,
		dialog:    dialog,
		images:    images,
		exportCfg: exportCfg,
		logger:    logger.With().Str("service", "panel").Logger(),
	}
}

func (s *panel) catalogView() *CatalogView {
	products := s.store.Filtered()
	return &CatalogView{
		SearchTerm: s.store.SearchTerm(),
		Products:   products,
		Total:      s.store.Len(),
		Editor:     s.store.EditorState(),
	}
}

// List returns the products matching the current search term.
func (s *panel) List(ctx context.Context) (*CatalogView, error) {
	var out *CatalogView
	err := s.loop.Call(ctx, func() error {
		out = s.catalogView()
		return nil
	})
	return out, err
}

// Get retrieves a single product by ID.
func (s *panel) Get(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	var out *model.Product
	err := s.loop.Call(ctx, func() error {
		p, ok := s.store.Get(id)
		if !ok {
			return model.ErrProductNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// Search replaces the search term and returns the filtered list.
func (s *panel) Search(ctx context.Context, term string) (*CatalogView, error) {
	var out *CatalogView
	err := s.loop.Call(ctx, func() error {
		s.store.SetSearchTerm(term)
		out = s.catalogView()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("term", term).Int("matches", len(out.Products)).Msg("search updated")
	return out, nil
}

// Delete removes a product.
func (s *panel) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.loop.Call(ctx, func() error {
		removed = s.store.Delete(id)
		// Keep the dialog in step when its product disappears.
		if removed && s.dialog.IsOpen() && !s.store.EditorState().IsOpen() {
			s.dialog.RequestClose()
		}
		return nil
	})
	return removed, err
}

// ExportCatalog renders the filtered list to PDF.
func (s *panel) ExportCatalog(ctx context.Context) (*export.Result, error) {
	var target export.RenderTarget
	if err := s.loop.Call(ctx, func() error {
		target = s.store.GridTarget()
		return nil
	}); err != nil {
		return nil, err
	}

	return s.store.ExportCatalog(ctx, target, s.exportCfg)
}

// Page returns everything the catalog page shows.
func (s *panel) Page(ctx context.Context) (view.Page, error) {
	var page view.Page
	err := s.loop.Call(ctx, func() error {
		page = view.Page{
			SearchTerm: s.store.SearchTerm(),
			Products:   s.store.Filtered(),
			Editor:     s.dialog.Snapshot(),
		}
		return nil
	})
	return page, err
}

// editorCall runs fn on the loop and returns the resulting dialog snapshot.
func (s *panel) editorCall(ctx context.Context, fn func() error) (*editor.Snapshot, error) {
	var out editor.Snapshot
	err := s.loop.Call(ctx, func() error {
		if err := fn(); err != nil {
			return err
		}
		out = s.dialog.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// State returns the dialog state and draft.
func (s *panel) State(ctx context.Context) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error { return nil })
}

// Open starts editing the product with id, or a new product if id is empty.
func (s *panel) Open(ctx context.Context, id string) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error {
		if id == "" {
			s.store.BeginCreate()
			s.dialog.Initialize(nil)
			return nil
		}

		if !s.store.BeginEdit(id) {
			return model.ErrProductNotFound
		}
		p, _ := s.store.Get(id)
		s.dialog.Initialize(&p)
		return nil
	})
}

// Close discards the draft.
func (s *panel) Close(ctx context.Context) error {
	return s.loop.Call(ctx, func() error {
		s.dialog.RequestClose()
		return nil
	})
}

// UpdateField sets a text field of the draft.
func (s *panel) UpdateField(ctx context.Context, field, value string) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error {
		return s.dialog.UpdateField(field, value)
	})
}

// SetSpecification adds or replaces a specification of the draft.
func (s *panel) SetSpecification(ctx context.Context, key, value string) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error {
		return s.dialog.SetSpecification(key, value)
	})
}

// RemoveSpecification removes a specification of the draft.
func (s *panel) RemoveSpecification(ctx context.Context, key string) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error {
		return s.dialog.RemoveSpecification(key)
	})
}

// LoadImage starts reading src into the draft image. It returns once the
// read is scheduled; the result lands on the draft later.
func (s *panel) LoadImage(ctx context.Context, src imageload.Source) error {
	return s.loop.Call(ctx, func() error {
		return s.dialog.LoadImage(src)
	})
}

// LoadRemoteImage starts reading the image stored under ref.
func (s *panel) LoadRemoteImage(ctx context.Context, ref string) error {
	if s.images == nil {
		return model.ErrNoImageStore
	}
	return s.LoadImage(ctx, imageload.Ref(s.images, ref))
}

// ClearImage removes the draft image.
func (s *panel) ClearImage(ctx context.Context) (*editor.Snapshot, error) {
	return s.editorCall(ctx, func() error {
		return s.dialog.ClearImage()
	})
}

// Submit validates and saves the draft.
func (s *panel) Submit(ctx context.Context) (*model.Product, error) {
	var saved model.Product
	err := s.loop.Call(ctx, func() error {
		var err error
		saved, err = s.dialog.Submit()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("product_id", saved.ID).Msg("draft saved")
	return &saved, nil
}

// ExportPreview renders the draft preview to PDF. The export is abandoned
// if the dialog closes first.
func (s *panel) ExportPreview(ctx context.Context) (*export.Result, error) {
	var (
		target  export.RenderTarget
		session context.Context
	)
	err := s.loop.Call(ctx, func() error {
		var err error
		target, err = s.dialog.PreviewTarget()
		session = s.dialog.Context()
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := editor.Bind(ctx, session)
	defer cancel()

	cfg := s.exportCfg.WithFilename(export.FilenameFor(target.Title))
	result, err := s.dialog.ExportDraftPreview(ctx, target, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to export preview: %w", err)
	}
	return result, nil
}

var _ Panel = (*panel)(nil)
