package middleware

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/glamspot/internal/model"
)

// NewCSRFMiddleware は状態変更リクエストの送信元とボディ形式を検証するミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップする。
// 状態変更メソッドでは次のリクエストを拒否する。
//   - Originヘッダーが許可リストにない（403 CROSS_SITE_REQUEST）
//   - Originがなく Sec-Fetch-Site が cross-site（403 CROSS_SITE_REQUEST）
//   - ボディがあり Content-Type が application/json でない（415 UNSUPPORTED_MEDIA_TYPE）
func NewCSRFMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			// 1. 送信元オリジンを検証
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; !ok {
					slog.Warn("CSRF validation failed: origin not allowed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("origin", origin),
					)
					WriteErrorResponse(w, http.StatusForbidden, model.NewCrossSiteError())
					return
				}
			} else if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
				slog.Warn("CSRF validation failed: cross-site fetch without origin",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewCrossSiteError())
				return
			}

			// 2. ボディはJSONのみ受け付ける
			if hasBody(r) {
				contentType := r.Header.Get("Content-Type")
				mediaType, _, err := mime.ParseMediaType(contentType)
				if err != nil || mediaType != "application/json" {
					slog.Warn("CSRF validation failed: non-JSON body",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("content_type", contentType),
					)
					WriteErrorResponse(w, http.StatusUnsupportedMediaType, model.NewUnsupportedMediaTypeError(contentType))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// hasBody はリクエストがボディを持つかどうかを判定する。
// 長さ不明（chunked）のボディもボディありとして扱う。
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
