package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/glamspot/internal/booking"
	"github.com/hitoshi/glamspot/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービス層インターフェース。
type BookingServiceInterface interface {
	Book(ctx context.Context, in booking.BookInput) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerEmail string) ([]*model.Booking, error)
	ListByProvider(ctx context.Context, providerEmail string) ([]*model.Booking, error)
	Get(ctx context.Context, id, email string) (*model.Booking, error)
	Update(ctx context.Context, id, email string, patch model.BookingPatch) (*model.Booking, error)
	Cancel(ctx context.Context, id, email string) error
	UpdateStatus(ctx context.Context, id, email string, status model.BookingStatus) (*model.Booking, error)
}

// BookingHandler は予約のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// bookRequest は予約作成リクエストのボディ。
// プロバイダー情報・サービス名・価格はサーバー側でサービスからコピーするため受け付けない。
type bookRequest struct {
	ServiceID          string `json:"serviceId"`
	CustomerEmail      string `json:"customerEmail"`
	CustomerName       string `json:"customerName"`
	ServiceTakingDate  string `json:"serviceTakingDate"`
	SpecialInstruction string `json:"specialInstruction"`
}

type updateStatusRequest struct {
	NewStatus model.BookingStatus `json:"newStatus"`
}

// bookingResponse は予約情報のAPIレスポンス。
type bookingResponse struct {
	ID                 string    `json:"_id"`
	ServiceID          string    `json:"serviceId"`
	ServiceName        string    `json:"serviceName"`
	ServiceImage       string    `json:"serviceImage"`
	Price              float64   `json:"price"`
	ProviderEmail      string    `json:"providerEmail"`
	ProviderName       string    `json:"providerName"`
	CustomerEmail      string    `json:"customerEmail"`
	CustomerName       string    `json:"customerName"`
	ServiceTakingDate  string    `json:"serviceTakingDate"`
	SpecialInstruction string    `json:"specialInstruction"`
	ServiceStatus      string    `json:"serviceStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BookNow は予約を作成し、サービスの予約数を1増やす。
// POST /book-now?email=
func (h *BookingHandler) BookNow(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		handleServiceError(w, err)
		return
	}
	if req.CustomerEmail != "" && req.CustomerEmail != email {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	b, err := h.service.Book(r.Context(), booking.BookInput{
		ServiceID:          req.ServiceID,
		CustomerEmail:      email,
		CustomerName:       req.CustomerName,
		ServiceTakingDate:  req.ServiceTakingDate,
		SpecialInstruction: req.SpecialInstruction,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// MyBookings は検証済み顧客の予約一覧を返す。
// GET /bookings?email=
func (h *BookingHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListByCustomer(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// ServicesToDo は検証済みプロバイダーが受けた予約一覧を返す。
// GET /services-to-do?email=
func (h *BookingHandler) ServicesToDo(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListByProvider(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// GetBooking は予約詳細を返す。
// GET /booking-details/{id}?email=
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// UpdateBooking は予約にマージパッチを適用する。
// PATCH /update-booking/{id}?email=
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	var patch model.BookingPatch
	if err := decodeJSONBody(r, &patch, true); err != nil {
		handleServiceError(w, err)
		return
	}

	b, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), email, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// DeleteBooking は予約を取り消し、サービスの予約数を1減らす。
// DELETE /delete-booking/{id}?email=
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), email); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true})
}

// UpdateStatus は予約の状態を更新する。
// PATCH /update-service-status/{id}?email=
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSONBody(r, &req, true); err != nil {
		handleServiceError(w, err)
		return
	}

	b, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), email, req.NewStatus)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:                 b.ID,
		ServiceID:          b.ServiceID,
		ServiceName:        b.ServiceName,
		ServiceImage:       b.ServiceImage,
		Price:              b.Price,
		ProviderEmail:      b.ProviderEmail,
		ProviderName:       b.ProviderName,
		CustomerEmail:      b.CustomerEmail,
		CustomerName:       b.CustomerName,
		ServiceTakingDate:  b.ServiceTakingDate,
		SpecialInstruction: b.SpecialInstruction,
		ServiceStatus:      string(b.ServiceStatus),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toBookingResponses(bookings []*model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}
