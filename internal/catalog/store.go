// Package catalog owns the in-memory product list, the search filter and the
// editor state of the panel.
//
// A Store is not safe for concurrent use. All calls are expected to come from
// the panel's event loop, one at a time.
package catalog

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"product-panel/internal/export"
	"product-panel/internal/model"
	"product-panel/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Mode is the editor state of the catalog.
type Mode string

const (
	ModeClosed   Mode = "closed"
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// EditorState records whether a product is being created or edited.
type EditorState struct {
	Mode      Mode   `json:"mode"`
	ProductID string `json:"product_id,omitempty"`
}

// IsOpen reports whether an editor session is active.
func (e EditorState) IsOpen() bool {
	return e.Mode == ModeCreating || e.Mode == ModeEditing
}

// Mutator is the capability the list view needs from its container.
type Mutator interface {
	// Save upserts candidate by id and closes the editor.
	Save(candidate model.Product) (model.Product, error)

	// Delete removes the product with id. It reports whether one was removed.
	Delete(id string) bool

	// BeginEdit opens the editor on an existing product.
	BeginEdit(id string) bool

	// BeginCreate opens the editor on a new product.
	BeginCreate()
}

// Notification texts.
const (
	msgSaved        = "Product saved successfully!"
	msgDeleted      = "Product deleted successfully!"
	msgNotFound     = "Product no longer exists"
	msgInvalid      = "Title and category are required"
	msgExported     = "Catalog exported successfully!"
	msgExportFailed = "Failed to export the catalog"
	gridTitle       = "Product Catalog"
)

// Store holds the authoritative product list.
type Store struct {
	products   []model.Product
	searchTerm string
	editor     EditorState

	notifier notify.Notifier
	exporter export.Exporter
	newID    func() string
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides how ids are assigned to new products.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(notifier notify.Notifier, exporter export.Exporter, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		editor:   EditorState{Mode: ModeClosed},
		notifier: notifier,
		exporter: exporter,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the product list with products. Products without an id get
// a fresh one. Duplicate ids and missing required fields are rejected and
// leave the store unchanged.
func (s *Store) Load(products []model.Product) error {
	// Generated ids must not collide with ids supplied later in the list.
	taken := make(map[string]struct{}, len(products))
	for _, p := range products {
		if !p.IsDraft() {
			taken[p.ID] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(products))
	loaded := make([]model.Product, 0, len(products))

	for i, p := range products {
		if err := validateRequired(p); err != nil {
			return fmt.Errorf("product %d: %w", i, err)
		}
		p = p.Clone()
		if p.IsDraft() {
			p.ID = s.unusedID(taken)
			taken[p.ID] = struct{}{}
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		now := s.now()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		loaded = append(loaded, p)
	}

	s.products = loaded
	s.logger.Info().Int("count", len(loaded)).Msg("catalog loaded")
	return nil
}

// SetSearchTerm replaces the active filter. The empty term matches everything.
func (s *Store) SetSearchTerm(term string) {
	s.searchTerm = term
}

// SearchTerm returns the active filter.
func (s *Store) SearchTerm() string {
	return s.searchTerm
}

// FilteredProducts yields copies of the products whose title or category
// contains the search term, ignoring case. The sequence reads the current
// list each time it is ranged over.
func (s *Store) FilteredProducts() iter.Seq[model.Product] {
	return func(yield func(model.Product) bool) {
		fold := cases.Fold()
		term := fold.String(s.searchTerm)

		for _, p := range s.products {
			if term != "" &&
				!strings.Contains(fold.String(p.Title), term) &&
				!strings.Contains(fold.String(p.Category), term) {
				continue
			}
			if !yield(p.Clone()) {
				return
			}
		}
	}
}

// Filtered collects FilteredProducts.
func (s *Store) Filtered() []model.Product {
	out := slices.Collect(s.FilteredProducts())
	if out == nil {
		return []model.Product{}
	}
	return out
}

// Products returns copies of all products in display order.
func (s *Store) Products() []model.Product {
	out := make([]model.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of products.
func (s *Store) Len() int {
	return len(s.products)
}

// Get returns a copy of the product with id.
func (s *Store) Get(id string) (model.Product, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Product{}, false
	}
	return s.products[idx].Clone(), true
}

// EditorState returns the current editor state.
func (s *Store) EditorState() EditorState {
	return s.editor
}

// BeginCreate opens the editor for a new product.
func (s *Store) BeginCreate() {
	s.editor = EditorState{Mode: ModeCreating}
	s.logger.Debug().Msg("editor opened for new product")
}

// BeginEdit opens the editor on the product with id. Unknown ids are ignored.
func (s *Store) BeginEdit(id string) bool {
	if s.indexOf(id) < 0 {
		s.logger.Debug().Str("product_id", id).Msg("edit requested for unknown product")
		return false
	}
	s.editor = EditorState{Mode: ModeEditing, ProductID: id}
	s.logger.Debug().Str("product_id", id).Msg("editor opened")
	return true
}

// CancelEdit closes the editor without touching the list.
func (s *Store) CancelEdit() {
	s.closeEditor()
}

func (s *Store) closeEditor() {
	s.editor = EditorState{Mode: ModeClosed}
}

// Save inserts candidate when it has no id, or replaces the product with the
// same id wholesale. It returns the stored product. The editor is closed
// whatever the outcome.
func (s *Store) Save(candidate model.Product) (model.Product, error) {
	defer s.closeEditor()

	if err := validateRequired(candidate); err != nil {
		s.notifier.Error(msgInvalid)
		return model.Product{}, err
	}

	stored := candidate.Clone()
	now := s.now()

	if stored.IsDraft() {
		stored.ID = s.freshID()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.products = append(s.products, stored)

		s.logger.Info().Str("product_id", stored.ID).Str("title", stored.Title).Msg("product created")
		s.notifier.Success(msgSaved)
		return stored.Clone(), nil
	}

	idx := s.indexOf(stored.ID)
	if idx < 0 {
		s.logger.Warn().Str("product_id", stored.ID).Msg("save targeted unknown product")
		s.notifier.Error(msgNotFound)
		return model.Product{}, model.ErrProductNotFound
	}

	stored.CreatedAt = s.products[idx].CreatedAt
	stored.UpdatedAt = now
	s.products[idx] = stored

	s.logger.Info().Str("product_id", stored.ID).Str("title", stored.Title).Msg("product updated")
	s.notifier.Success(msgSaved)
	return stored.Clone(), nil
}

// Delete removes the product with id. Deleting an unknown id does nothing.
func (s *Store) Delete(id string) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.Debug().Str("product_id", id).Msg("delete of unknown product ignored")
		return false
	}

	s.products = slices.Delete(s.products, idx, idx+1)
	if s.editor.Mode == ModeEditing && s.editor.ProductID == id {
		s.closeEditor()
	}

	s.logger.Info().Str("product_id", id).Msg("product deleted")
	s.notifier.Success(msgDeleted)
	return true
}

// GridTarget snapshots the rendered list for export.
func (s *Store) GridTarget() export.RenderTarget {
	return export.RenderTarget{
		Kind:     export.TargetGrid,
		Title:    gridTitle,
		Products: s.Filtered(),
	}
}

// ExportCatalog hands target to the exporter. Failures are reported to the
// user and wrapped in ErrExportFailed; the store is never modified, so this
// may run away from the event loop.
func (s *Store) ExportCatalog(ctx context.Context, target export.RenderTarget, cfg export.Config) (*export.Result, error) {
	result, err := s.exporter.Export(ctx, target, cfg)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", cfg.Filename).Msg("catalog export failed")
		s.notifier.Error(msgExportFailed)
		return nil, fmt.Errorf("%w: %w", model.ErrExportFailed, err)
	}

	s.logger.Info().
		Str("filename", result.Filename).
		Int("products", len(target.Products)).
		Msg("catalog exported")
	s.notifier.Success(msgExported)
	return result, nil
}

func (s *Store) freshID() string {
	id := s.newID()
	for s.indexOf(id) >= 0 {
		id = s.newID()
	}
	return id
}

// unusedID generates an id that is not in taken.
func (s *Store) unusedID(taken map[string]struct{}) string {
	for {
		id := s.newID()
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.products, func(p model.Product) bool { return p.ID == id })
}

func validateRequired(p model.Product) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		fields[model.FieldTitle] = "title is required"
	}
	if strings.TrimSpace(p.Category) == "" {
		fields[model.FieldCategory] = "category is required"
	}
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

var _ Mutator = (*Store)(nil)
