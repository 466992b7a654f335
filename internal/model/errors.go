// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, service, booking, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeServiceNotFound   = "SERVICE_NOT_FOUND"
	ErrCodeBookingNotFound   = "BOOKING_NOT_FOUND"
	ErrCodeInvalidID         = "INVALID_ID"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidPagination = "INVALID_PAGINATION"
	ErrCodeInvalidSort       = "INVALID_SORT"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeUnknownField      = "UNKNOWN_FIELD"
	ErrCodeEmptyPatch        = "EMPTY_PATCH"
	ErrCodeEmailRequired     = "EMAIL_REQUIRED"
	ErrCodeCrossSite         = "CROSS_SITE_REQUEST"
	ErrCodeUnsupportedMedia  = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthorizedError はトークン欠落・不正・期限切れ時のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "unauthorized access",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は認証済みの利用者がリソース所有者と一致しない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "forbidden access",
		Category: "auth",
		Action:   "自分のアカウントに紐づくリソースのみ操作できます。",
	}
}

// NewServiceNotFoundError はサービス未検出エラーを生成する。
func NewServiceNotFoundError(serviceID string) *APIError {
	return &APIError{
		Code:     ErrCodeServiceNotFound,
		Message:  fmt.Sprintf("指定されたサービスが見つかりません: %s", serviceID),
		Category: "service",
		Action:   "サービスIDを確認してください。",
	}
}

// NewBookingNotFoundError は予約未検出エラーを生成する。
func NewBookingNotFoundError(bookingID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookingNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %s", bookingID),
		Category: "booking",
		Action:   "予約IDを確認してください。",
	}
}

// NewInvalidIDError は識別子の形式が不正な場合のエラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効な識別子です: %s", id),
		Category: "validation",
		Action:   "UUID形式の識別子を指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析に失敗した場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidPaginationError はページ番号・件数が不正な場合のエラーを生成する。
func NewInvalidPaginationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPagination,
		Message:  fmt.Sprintf("無効なページ指定です: %s", reason),
		Category: "validation",
		Action:   "page は1以上、size は1から100の整数で指定してください。",
	}
}

// NewInvalidSortError は並び順が不正な場合のエラーを生成する。
func NewInvalidSortError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効な並び順です: %s", sort),
		Category: "validation",
		Action:   "sort には asc または desc を指定してください。",
	}
}

// NewInvalidStatusError は予約状態が不正な場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な予約状態です: %s", status),
		Category: "validation",
		Action:   "pending、working、completed のいずれかを指定してください。",
	}
}

// NewUnknownFieldError は更新可能フィールド以外が指定された場合のエラーを生成する。
func NewUnknownFieldError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownField,
		Message:  fmt.Sprintf("更新できないフィールドが含まれています: %s", detail),
		Category: "validation",
		Action:   "更新可能なフィールドのみを指定してください。",
	}
}

// NewEmptyPatchError は更新対象のフィールドが1つもない場合のエラーを生成する。
func NewEmptyPatchError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyPatch,
		Message:  "更新対象のフィールドがありません。",
		Category: "validation",
		Action:   "少なくとも1つのフィールドを指定してください。",
	}
}

// NewEmailRequiredError はトークン発行時にメールアドレスがない場合のエラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "メールアドレスが必要です。",
		Category: "validation",
		Action:   "email を含めてリクエストしてください。",
	}
}

// NewCrossSiteError は許可されていないオリジンからの状態変更リクエストのエラーを生成する。
func NewCrossSiteError() *APIError {
	return &APIError{
		Code:     ErrCodeCrossSite,
		Message:  "cross-site request rejected",
		Category: "auth",
		Action:   "許可されたオリジンからリクエストしてください。",
	}
}

// NewUnsupportedMediaTypeError はJSON以外のリクエストボディのエラーを生成する。
func NewUnsupportedMediaTypeError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMedia,
		Message:  fmt.Sprintf("Content-Type %q は受け付けられません。", contentType),
		Category: "validation",
		Action:   "Content-Type: application/json で送信してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
