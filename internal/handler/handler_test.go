package handler

import (
	"context"
	"net/http"
	"strings"

	"product-panel/internal/editor"
	"product-panel/internal/export"
	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/service"
	"product-panel/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context) (*service.CatalogView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CatalogView), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) Search(ctx context.Context, term string) (*service.CatalogView, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CatalogView), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogService) ExportCatalog(ctx context.Context) (*export.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Result), args.Error(1)
}

func (m *MockCatalogService) Page(ctx context.Context) (view.Page, error) {
	args := m.Called(ctx)
	return args.Get(0).(view.Page), args.Error(1)
}

// MockEditorService is a mock implementation of EditorService.
type MockEditorService struct {
	mock.Mock
}

func (m *MockEditorService) snapshot(args mock.Arguments) (*editor.Snapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*editor.Snapshot), args.Error(1)
}

func (m *MockEditorService) State(ctx context.Context) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx))
}

func (m *MockEditorService) Open(ctx context.Context, id string) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id))
}

func (m *MockEditorService) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEditorService) UpdateField(ctx context.Context, field, value string) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx, field, value))
}

func (m *MockEditorService) SetSpecification(ctx context.Context, key, value string) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx, key, value))
}

func (m *MockEditorService) RemoveSpecification(ctx context.Context, key string) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx, key))
}

func (m *MockEditorService) LoadImage(ctx context.Context, src imageload.Source) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

func (m *MockEditorService) LoadRemoteImage(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockEditorService) ClearImage(ctx context.Context) (*editor.Snapshot, error) {
	return m.snapshot(m.Called(ctx))
}

func (m *MockEditorService) Submit(ctx context.Context) (*model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockEditorService) ExportPreview(ctx context.Context) (*export.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Result), args.Error(1)
}

// withURLParams attaches chi route parameters to a request.
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func body(s string) *strings.Reader {
	return strings.NewReader(s)
}
