package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/glamspot/internal/model"
	"github.com/hitoshi/glamspot/internal/repository"
)

// --- フェイク ---

// fakeStore は予約数の増減をトランザクション相当で扱うインメモリのストア。
type fakeStore struct {
	mu       sync.Mutex
	services map[string]*model.Service
	bookings map[string]*model.Booking

	createErr    error
	deleteCalls  int
	adjustCalls  int
	findSvcCalls int
}

var (
	_ repository.BookingRepository = bookingRepo{}
	_ ServiceFinder                = (*fakeStore)(nil)
)

func newFakeStore(services ...*model.Service) *fakeStore {
	f := &fakeStore{
		services: make(map[string]*model.Service),
		bookings: make(map[string]*model.Booking),
	}
	for _, s := range services {
		f.services[s.ID] = s
	}
	return f
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (*model.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findSvcCalls++
	if s, ok := f.services[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateWithLedger(ctx context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	svc, ok := f.services[b.ServiceID]
	if !ok {
		return repository.ErrServiceNotFound
	}
	c := *b
	f.bookings[b.ID] = &c
	svc.TotalBookings++
	f.adjustCalls++
	return nil
}

func (f *fakeStore) DeleteWithLedger(ctx context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	if svc, ok := f.services[b.ServiceID]; ok {
		svc.TotalBookings--
		f.adjustCalls++
	}
	delete(f.bookings, id)
	return b, nil
}

func (f *fakeStore) findBooking(id string) *model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		c := *b
		return &c
	}
	return nil
}

func (f *fakeStore) ListByCustomer(ctx context.Context, email string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.CustomerEmail == email }), nil
}

func (f *fakeStore) ListByProvider(ctx context.Context, email string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.ProviderEmail == email }), nil
}

func (f *fakeStore) filter(keep func(*model.Booking) bool) []*model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range f.bookings {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func (f *fakeStore) Update(ctx context.Context, b *model.Booking) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[b.ID]; !ok {
		return false, nil
	}
	c := *b
	f.bookings[b.ID] = &c
	return true, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, nil
	}
	b.ServiceStatus = status
	return true, nil
}

// bookingRepo はfakeStoreの予約検索をBookingRepository.FindByIDとして公開する。
type bookingRepo struct{ *fakeStore }

func (r bookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.findBooking(id), nil
}

type countingRecorder struct {
	created, cancelled int
}

func (r *countingRecorder) RecordBookingCreated()   { r.created++ }
func (r *countingRecorder) RecordBookingCancelled() { r.cancelled++ }

// --- ヘルパー ---

const (
	haircutID = "6f1c7a2e-8d4b-4c1e-9a57-2b3c4d5e6f70"
	provider  = "a@x.com"
	customer  = "b@x.com"
)

func haircut() *model.Service {
	return &model.Service{
		ID:            haircutID,
		ServiceName:   "Haircut",
		ServiceImage:  "https://img.example.com/haircut.png",
		Price:         20,
		ProviderEmail: provider,
		ProviderName:  "Alice",
	}
}

func newTestService(store *fakeStore, rec LedgerRecorder) *Service {
	s := NewService(bookingRepo{store}, store, rec)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

func strPtr(s string) *string { return &s }

// --- テスト ---

// TestHaircutScenario はサービス作成から予約・取消までの予約数の推移を検証する。
func TestHaircutScenario(t *testing.T) {
	store := newFakeStore(haircut())
	rec := &countingRecorder{}
	s := newTestService(store, rec)
	ctx := context.Background()

	if got := store.services[haircutID].TotalBookings; got != 0 {
		t.Fatalf("initial total = %d, want 0", got)
	}

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer, CustomerName: "Bob"})
	if err != nil {
		t.Fatalf("Book returned error: %v", err)
	}
	if got := store.services[haircutID].TotalBookings; got != 1 {
		t.Errorf("total after booking = %d, want 1", got)
	}
	stored := store.findBooking(b.ID)
	if stored == nil {
		t.Fatal("booking not stored")
	}
	if stored.ProviderEmail != provider || stored.ServiceID != haircutID {
		t.Errorf("stored booking = %+v", stored)
	}
	if stored.ServiceName != "Haircut" || stored.Price != 20 || stored.ProviderName != "Alice" {
		t.Errorf("service fields not copied: %+v", stored)
	}
	if stored.ServiceStatus != model.BookingStatusPending {
		t.Errorf("status = %q, want pending", stored.ServiceStatus)
	}

	if err := s.Cancel(ctx, b.ID, customer); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if got := store.services[haircutID].TotalBookings; got != 0 {
		t.Errorf("total after cancel = %d, want 0", got)
	}
	if store.findBooking(b.ID) != nil {
		t.Error("booking should be gone")
	}
	if rec.created != 1 || rec.cancelled != 1 {
		t.Errorf("recorder = %+v, want created=1 cancelled=1", rec)
	}
}

// TestLedger_NCreatesMDeletes は予約数が生存予約数と一致することを検証する。
func TestLedger_NCreatesMDeletes(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	const n, m = 12, 5
	created := make(chan *model.Booking, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: fmt.Sprintf("c%d@x.com", i)})
			if err != nil {
				t.Errorf("Book: %v", err)
				return
			}
			created <- b
		}(i)
	}
	wg.Wait()
	close(created)

	var toCancel []*model.Booking
	for b := range created {
		if len(toCancel) < m {
			toCancel = append(toCancel, b)
		}
	}
	for _, b := range toCancel {
		wg.Add(1)
		go func(b *model.Booking) {
			defer wg.Done()
			if err := s.Cancel(ctx, b.ID, b.CustomerEmail); err != nil {
				t.Errorf("Cancel: %v", err)
			}
		}(b)
	}
	wg.Wait()

	if got := store.services[haircutID].TotalBookings; got != n-m {
		t.Errorf("total = %d, want %d", got, n-m)
	}
	if live := len(store.bookings); live != n-m {
		t.Errorf("live bookings = %d, want %d", live, n-m)
	}
}

func TestBook_Errors(t *testing.T) {
	t.Run("不正なサービスIDは400", func(t *testing.T) {
		store := newFakeStore(haircut())
		_, err := newTestService(store, nil).Book(context.Background(), BookInput{ServiceID: "abc", CustomerEmail: customer})
		assertAPIErrorCode(t, err, model.ErrCodeInvalidID)
		if store.findSvcCalls != 0 {
			t.Error("store should not be queried for malformed id")
		}
	})

	t.Run("存在しないサービスは404", func(t *testing.T) {
		store := newFakeStore()
		_, err := newTestService(store, nil).Book(context.Background(), BookInput{ServiceID: haircutID, CustomerEmail: customer})
		assertAPIErrorCode(t, err, model.ErrCodeServiceNotFound)
		if len(store.bookings) != 0 {
			t.Error("no booking should be stored")
		}
	})

	t.Run("ストア障害はラップして返す", func(t *testing.T) {
		store := newFakeStore(haircut())
		store.createErr = errors.New("connection reset")
		rec := &countingRecorder{}
		_, err := newTestService(store, rec).Book(context.Background(), BookInput{ServiceID: haircutID, CustomerEmail: customer})
		if !errors.Is(err, store.createErr) {
			t.Fatalf("expected wrapped store error, got %v", err)
		}
		if rec.created != 0 {
			t.Error("failed booking should not be recorded")
		}
	})
}

func TestCancel_MissingBooking_DoesNotTouchCounter(t *testing.T) {
	store := newFakeStore(haircut())
	store.services[haircutID].TotalBookings = 4
	s := newTestService(store, nil)

	err := s.Cancel(context.Background(), "00000000-0000-0000-0000-000000000001", customer)
	assertAPIErrorCode(t, err, model.ErrCodeBookingNotFound)

	if store.deleteCalls != 0 {
		t.Errorf("DeleteWithLedger called %d times, want 0", store.deleteCalls)
	}
	if got := store.services[haircutID].TotalBookings; got != 4 {
		t.Errorf("total = %d, want 4", got)
	}
}

func TestCancel_Twice_SecondIsNotFound(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if err := s.Cancel(ctx, b.ID, customer); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	err = s.Cancel(ctx, b.ID, customer)
	assertAPIErrorCode(t, err, model.ErrCodeBookingNotFound)

	if got := store.services[haircutID].TotalBookings; got != 0 {
		t.Errorf("total = %d, want 0", got)
	}
}

func TestCancel_ByOtherUser_Forbidden(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	err = s.Cancel(ctx, b.ID, "mallory@x.com")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
	if store.deleteCalls != 0 {
		t.Error("DeleteWithLedger should not be called")
	}
	if got := store.services[haircutID].TotalBookings; got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

func TestCancel_AfterServiceDeleted_RemovesBooking(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	delete(store.services, haircutID)

	if err := s.Cancel(ctx, b.ID, customer); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if store.findBooking(b.ID) != nil {
		t.Error("booking should be gone")
	}
}

func TestGet_Access(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	for _, email := range []string{customer, provider} {
		if _, err := s.Get(ctx, b.ID, email); err != nil {
			t.Errorf("Get as %s returned error: %v", email, err)
		}
	}

	_, err = s.Get(ctx, b.ID, "mallory@x.com")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)

	_, err = s.Get(ctx, "bad-id", customer)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidID)
}

func TestUpdate_PatchesAllowedFields(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer, CustomerName: "Bob", ServiceTakingDate: "2026-03-10"})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	updated, err := s.Update(ctx, b.ID, customer, model.BookingPatch{
		SpecialInstruction: strPtr("<em>short</em> on the sides"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.SpecialInstruction != "<em>short</em> on the sides" {
		t.Errorf("SpecialInstruction = %q, want value stored as sent", updated.SpecialInstruction)
	}
	if updated.CustomerName != "Bob" || updated.ServiceTakingDate != "2026-03-10" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	_, err = s.Update(ctx, b.ID, provider, model.BookingPatch{CustomerName: strPtr("x")})
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)

	_, err = s.Update(ctx, b.ID, customer, model.BookingPatch{})
	assertAPIErrorCode(t, err, model.ErrCodeEmptyPatch)
}

// TestBook_StoresTextFieldsVerbatim はプレーンテキスト項目が送信値のまま保存されることを検証する。
func TestBook_StoresTextFieldsVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"<の直後に英字", "a<b"},
		{"山括弧で囲んだ語", "Cut <Premium> Style"},
		{"エンティティ表記", "Tom &amp; Jerry"},
		{"アンパサンド", "AT&T Salon"},
		{"不等号", "5 < 10 min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(haircut())
			s := newTestService(store, nil)

			b, err := s.Book(context.Background(), BookInput{
				ServiceID:          haircutID,
				CustomerEmail:      customer,
				CustomerName:       tt.input,
				SpecialInstruction: tt.input,
			})
			if err != nil {
				t.Fatalf("Book returned error: %v", err)
			}
			stored := store.findBooking(b.ID)
			if stored.CustomerName != tt.input {
				t.Errorf("CustomerName = %q, want %q", stored.CustomerName, tt.input)
			}
			if stored.SpecialInstruction != tt.input {
				t.Errorf("SpecialInstruction = %q, want %q", stored.SpecialInstruction, tt.input)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	b, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: customer})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	got, err := s.UpdateStatus(ctx, b.ID, provider, model.BookingStatusWorking)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if got.ServiceStatus != model.BookingStatusWorking {
		t.Errorf("status = %q, want working", got.ServiceStatus)
	}
	if stored := store.findBooking(b.ID); stored.ServiceStatus != model.BookingStatusWorking {
		t.Errorf("stored status = %q, want working", stored.ServiceStatus)
	}

	_, err = s.UpdateStatus(ctx, b.ID, customer, model.BookingStatusCompleted)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)

	_, err = s.UpdateStatus(ctx, b.ID, provider, model.BookingStatus("cancelled"))
	assertAPIErrorCode(t, err, model.ErrCodeInvalidStatus)
}

func TestListings(t *testing.T) {
	store := newFakeStore(haircut())
	s := newTestService(store, nil)
	ctx := context.Background()

	for _, c := range []string{customer, customer, "c@x.com"} {
		if _, err := s.Book(ctx, BookInput{ServiceID: haircutID, CustomerEmail: c}); err != nil {
			t.Fatalf("Book: %v", err)
		}
	}

	mine, err := s.ListByCustomer(ctx, customer)
	if err != nil || len(mine) != 2 {
		t.Errorf("ListByCustomer = (%d, %v), want 2", len(mine), err)
	}
	todo, err := s.ListByProvider(ctx, provider)
	if err != nil || len(todo) != 3 {
		t.Errorf("ListByProvider = (%d, %v), want 3", len(todo), err)
	}
}
