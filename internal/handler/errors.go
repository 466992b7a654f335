// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/glamspot/internal/middleware"
	"github.com/hitoshi/glamspot/internal/model"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCrossSite:
		return http.StatusForbidden
	case model.ErrCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeServiceNotFound, model.ErrCodeBookingNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidID, model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidPagination, model.ErrCodeInvalidSort,
		model.ErrCodeInvalidStatus, model.ErrCodeUnknownField,
		model.ErrCodeEmptyPatch, model.ErrCodeEmailRequired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSONBody はリクエストボディをdstにデコードする。
// strictがtrueの場合、dstに定義されていないキーはUNKNOWN_FIELDとして拒否する。
func decodeJSONBody(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		// encoding/jsonは未知フィールドを専用のエラー型で返さない
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			return model.NewUnknownFieldError(strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return model.NewInvalidRequestError()
	}
	// 最初のJSON値の後に続くデータは受け付けない
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.NewInvalidRequestError()
	}
	return nil
}

// requestEmail はアクセスガードが検証したメールアドレスを返す。
// ガード外のルートから呼ばれた場合は401を書き込みfalseを返す。
func requestEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return email, true
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

type successResponse struct {
	Success bool `json:"success"`
}
