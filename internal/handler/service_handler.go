package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/glamspot/internal/catalog"
	"github.com/hitoshi/glamspot/internal/model"
)

// CatalogServiceInterface はサービスハンドラーが必要とするサービス層インターフェース。
type CatalogServiceInterface interface {
	Create(ctx context.Context, in catalog.CreateInput) (*model.Service, error)
	List(ctx context.Context) ([]*model.Service, error)
	Get(ctx context.Context, id string) (*model.Service, error)
	ListByProvider(ctx context.Context, providerEmail string) ([]*model.Service, error)
	Search(ctx context.Context, term string) ([]*model.Service, error)
	Paginate(ctx context.Context, req catalog.PageRequest) ([]*model.Service, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id, email string, patch model.ServicePatch) (*model.Service, error)
	Delete(ctx context.Context, id, email string) error
}

// ServiceHandler はサービス掲載のHTTPハンドラー。
type ServiceHandler struct {
	service CatalogServiceInterface
}

// NewServiceHandler はServiceHandlerを生成する。
func NewServiceHandler(service CatalogServiceInterface) *ServiceHandler {
	return &ServiceHandler{service: service}
}

// createServiceRequest はサービス作成リクエストのボディ。
// providerEmailは省略可能で、指定された場合は検証済みメールアドレスと一致する必要がある。
type createServiceRequest struct {
	ServiceName   string  `json:"serviceName"`
	ServiceImage  string  `json:"serviceImage"`
	Price         float64 `json:"price"`
	ServiceArea   string  `json:"serviceArea"`
	Description   string  `json:"description"`
	ProviderEmail string  `json:"providerEmail"`
	ProviderName  string  `json:"providerName"`
	ProviderImage string  `json:"providerImage"`
}

// serviceResponse はサービス情報のAPIレスポンス。
type serviceResponse struct {
	ID            string    `json:"_id"`
	ServiceName   string    `json:"serviceName"`
	ServiceImage  string    `json:"serviceImage"`
	Price         float64   `json:"price"`
	ServiceArea   string    `json:"serviceArea"`
	Description   string    `json:"description"`
	ProviderEmail string    `json:"providerEmail"`
	ProviderName  string    `json:"providerName"`
	ProviderImage string    `json:"providerImage"`
	TotalBookings int       `json:"totalBookings"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type countResponse struct {
	Count int `json:"count"`
}

// CreateService はサービスを掲載する。
// POST /add-service?email=
func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	var req createServiceRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		handleServiceError(w, err)
		return
	}
	if req.ProviderEmail != "" && req.ProviderEmail != email {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	svc, err := h.service.Create(r.Context(), catalog.CreateInput{
		ServiceName:   req.ServiceName,
		ServiceImage:  req.ServiceImage,
		Price:         req.Price,
		ServiceArea:   req.ServiceArea,
		Description:   req.Description,
		ProviderEmail: email,
		ProviderName:  req.ProviderName,
		ProviderImage: req.ProviderImage,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// ListServices は全サービスを返す。
// GET /all-services
func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// GetService はサービス詳細を返す。
// GET /service-details/{id}
func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// MyServices は検証済みプロバイダーが掲載したサービスを返す。
// GET /my-services?email=
func (h *ServiceHandler) MyServices(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	services, err := h.service.ListByProvider(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// UpdateService はサービスにマージパッチを適用する。
// PATCH /update-service/{id}?email=
func (h *ServiceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	var patch model.ServicePatch
	if err := decodeJSONBody(r, &patch, true); err != nil {
		handleServiceError(w, err)
		return
	}

	svc, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), email, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// DeleteService はサービスを削除する。
// DELETE /delete-service/{id}?email=
func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), email); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true})
}

// PaginateServices は指定ページのサービスを返す。
// GET /all-services-by-pagination?page=&size=&sort=
func (h *ServiceHandler) PaginateServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := catalog.ParsePageRequest(q.Get("page"), q.Get("size"), q.Get("sort"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	services, err := h.service.Paginate(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// CountServices は全サービス数を返す。
// GET /services-count
func (h *ServiceHandler) CountServices(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// SearchServices はサービス名で部分一致検索する。
// GET /search-services?search=
func (h *ServiceHandler) SearchServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

func toServiceResponse(s *model.Service) serviceResponse {
	return serviceResponse{
		ID:            s.ID,
		ServiceName:   s.ServiceName,
		ServiceImage:  s.ServiceImage,
		Price:         s.Price,
		ServiceArea:   s.ServiceArea,
		Description:   s.Description,
		ProviderEmail: s.ProviderEmail,
		ProviderName:  s.ProviderName,
		ProviderImage: s.ProviderImage,
		TotalBookings: s.TotalBookings,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// toServiceResponses は空の場合もnullではなく空配列を返す。
func toServiceResponses(services []*model.Service) []serviceResponse {
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResponse(s))
	}
	return out
}
