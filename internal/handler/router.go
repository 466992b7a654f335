package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/glamspot/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	TokenParser        middleware.TokenParser
	CORSAllowedOrigins []string
	Metrics            middleware.HTTPMetricsRecorder
	MetricsHandler     http.Handler // nilの場合/metricsは公開しない

	// 認証
	Tokens TokenIssuer

	// サービス・予約
	CatalogService CatalogServiceInterface
	BookingService BookingServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → (AccessGuard → CSRF)
//
// 利用者に紐づくルートはアクセスガード付きのグループに配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.Tokens)
	serviceHandler := NewServiceHandler(deps.CatalogService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 運用ルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	csrf := middleware.NewCSRFMiddleware(deps.CORSAllowedOrigins)

	// --- トークン ---
	r.With(csrf).Post("/getJwtToken", authHandler.IssueToken)
	r.With(csrf).Post("/deleteJwtToken", authHandler.RevokeToken)

	// --- 公開ルート ---
	r.Get("/all-services", serviceHandler.ListServices)
	r.Get("/service-details/{id}", serviceHandler.GetService)
	r.Get("/all-services-by-pagination", serviceHandler.PaginateServices)
	r.Get("/services-count", serviceHandler.CountServices)
	r.Get("/search-services", serviceHandler.SearchServices)

	// --- アクセスガード付きルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAccessGuard(deps.TokenParser))
		r.Use(csrf)

		// サービス掲載
		r.Post("/add-service", serviceHandler.CreateService)
		r.Get("/my-services", serviceHandler.MyServices)
		r.Patch("/update-service/{id}", serviceHandler.UpdateService)
		r.Delete("/delete-service/{id}", serviceHandler.DeleteService)

		// 予約
		r.Post("/book-now", bookingHandler.BookNow)
		r.Get("/bookings", bookingHandler.MyBookings)
		r.Get("/booking-details/{id}", bookingHandler.GetBooking)
		r.Patch("/update-booking/{id}", bookingHandler.UpdateBooking)
		r.Delete("/delete-booking/{id}", bookingHandler.DeleteBooking)
		r.Get("/services-to-do", bookingHandler.ServicesToDo)
		r.Patch("/update-service-status/{id}", bookingHandler.UpdateStatus)
	})

	return r
}
