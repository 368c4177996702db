package service

import (
	"context"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/export"
	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/view"
)

// CatalogView is the visible state of the product list.
type CatalogView struct {
	SearchTerm string              `json:"searchTerm"`
	Products   []model.Product     `json:"products"`
	Total      int                 `json:"total"`
	Editor     catalog.EditorState `json:"editor"`
}

// CatalogService defines operations on the product list.
type CatalogService interface {
	// List returns the products matching the current search term.
	List(ctx context.Context) (*CatalogView, error)

	// Get retrieves a single product by ID.
	Get(ctx context.Context, id string) (*model.Product, error)

	// Search replaces the search term and returns the filtered list.
	Search(ctx context.Context, term string) (*CatalogView, error)

	// Delete removes a product. Unknown IDs are ignored and report false.
	Delete(ctx context.Context, id string) (bool, error)

	// ExportCatalog renders the filtered list to PDF.
	ExportCatalog(ctx context.Context) (*export.Result, error)

	// Page returns everything the catalog page shows.
	Page(ctx context.Context) (view.Page, error)
}

// EditorService defines operations on the editor dialog.
type EditorService interface {
	// State returns the dialog state and draft.
	State(ctx context.Context) (*editor.Snapshot, error)

	// Open starts editing the product with id, or a new product if id is empty.
	Open(ctx context.Context, id string) (*editor.Snapshot, error)

	// Close discards the draft.
	Close(ctx context.Context) error

	// UpdateField sets a text field of the draft.
	UpdateField(ctx context.Context, field, value string) (*editor.Snapshot, error)

	// SetSpecification adds or replaces a specification of the draft.
	SetSpecification(ctx context.Context, key, value string) (*editor.Snapshot, error)

	// RemoveSpecification removes a specification of the draft.
	RemoveSpecification(ctx context.Context, key string) (*editor.Snapshot, error)

	// LoadImage starts reading src into the draft image.
	LoadImage(ctx context.Context, src imageload.Source) error

	// LoadRemoteImage starts reading the image stored under ref.
	LoadRemoteImage(ctx context.Context, ref string) error

	// ClearImage removes the draft image.
	ClearImage(ctx context.Context) (*editor.Snapshot, error)

	// Submit validates and saves the draft.
	Submit(ctx context.Context) (*model.Product, error)

	// ExportPreview renders the draft preview to PDF.
	ExportPreview(ctx context.Context) (*export.Result, error)
}
