package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/glamspot/internal/auth"
	"github.com/hitoshi/glamspot/internal/booking"
	"github.com/hitoshi/glamspot/internal/catalog"
	"github.com/hitoshi/glamspot/internal/middleware"
	"github.com/hitoshi/glamspot/internal/model"
)

// --- モック ---

type mockTokenIssuer struct {
	issueFn  func(identity auth.Identity) (*http.Cookie, error)
	revokeFn func() *http.Cookie
}

func (m *mockTokenIssuer) Issue(identity auth.Identity) (*http.Cookie, error) {
	return m.issueFn(identity)
}

func (m *mockTokenIssuer) Revoke() *http.Cookie {
	return m.revokeFn()
}

type mockCatalogService struct {
	createFn         func(ctx context.Context, in catalog.CreateInput) (*model.Service, error)
	listFn           func(ctx context.Context) ([]*model.Service, error)
	getFn            func(ctx context.Context, id string) (*model.Service, error)
	listByProviderFn func(ctx context.Context, providerEmail string) ([]*model.Service, error)
	searchFn         func(ctx context.Context, term string) ([]*model.Service, error)
	paginateFn       func(ctx context.Context, req catalog.PageRequest) ([]*model.Service, error)
	countFn          func(ctx context.Context) (int, error)
	updateFn         func(ctx context.Context, id, email string, patch model.ServicePatch) (*model.Service, error)
	deleteFn         func(ctx context.Context, id, email string) error
}

var _ CatalogServiceInterface = (*mockCatalogService)(nil)

func (m *mockCatalogService) Create(ctx context.Context, in catalog.CreateInput) (*model.Service, error) {
	return m.createFn(ctx, in)
}

func (m *mockCatalogService) List(ctx context.Context) ([]*model.Service, error) {
	return m.listFn(ctx)
}

func (m *mockCatalogService) Get(ctx context.Context, id string) (*model.Service, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogService) ListByProvider(ctx context.Context, providerEmail string) ([]*model.Service, error) {
	return m.listByProviderFn(ctx, providerEmail)
}

func (m *mockCatalogService) Search(ctx context.Context, term string) ([]*model.Service, error) {
	return m.searchFn(ctx, term)
}

func (m *mockCatalogService) Paginate(ctx context.Context, req catalog.PageRequest) ([]*model.Service, error) {
	return m.paginateFn(ctx, req)
}

func (m *mockCatalogService) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

func (m *mockCatalogService) Update(ctx context.Context, id, email string, patch model.ServicePatch) (*model.Service, error) {
	return m.updateFn(ctx, id, email, patch)
}

func (m *mockCatalogService) Delete(ctx context.Context, id, email string) error {
	return m.deleteFn(ctx, id, email)
}

type mockBookingService struct {
	bookFn           func(ctx context.Context, in booking.BookInput) (*model.Booking, error)
	listByCustomerFn func(ctx context.Context, email string) ([]*model.Booking, error)
	listByProviderFn func(ctx context.Context, email string) ([]*model.Booking, error)
	getFn            func(ctx context.Context, id, email string) (*model.Booking, error)
	updateFn         func(ctx context.Context, id, email string, patch model.BookingPatch) (*model.Booking, error)
	cancelFn         func(ctx context.Context, id, email string) error
	updateStatusFn   func(ctx context.Context, id, email string, status model.BookingStatus) (*model.Booking, error)
}

var _ BookingServiceInterface = (*mockBookingService)(nil)

func (m *mockBookingService) Book(ctx context.Context, in booking.BookInput) (*model.Booking, error) {
	return m.bookFn(ctx, in)
}

func (m *mockBookingService) ListByCustomer(ctx context.Context, email string) ([]*model.Booking, error) {
	return m.listByCustomerFn(ctx, email)
}

func (m *mockBookingService) ListByProvider(ctx context.Context, email string) ([]*model.Booking, error) {
	return m.listByProviderFn(ctx, email)
}

func (m *mockBookingService) Get(ctx context.Context, id, email string) (*model.Booking, error) {
	return m.getFn(ctx, id, email)
}

func (m *mockBookingService) Update(ctx context.Context, id, email string, patch model.BookingPatch) (*model.Booking, error) {
	return m.updateFn(ctx, id, email, patch)
}

func (m *mockBookingService) Cancel(ctx context.Context, id, email string) error {
	return m.cancelFn(ctx, id, email)
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, id, email string, status model.BookingStatus) (*model.Booking, error) {
	return m.updateStatusFn(ctx, id, email, status)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error { return m.err }

// --- ヘルパー ---

// withEmail はアクセスガード通過後と同じコンテキストを持つリクエストを返す。
func withEmail(r *http.Request, email string) *http.Request {
	return r.WithContext(middleware.ContextWithEmail(r.Context(), email))
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body.Code
}
