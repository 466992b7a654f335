package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/glamspot/internal/auth"
	"github.com/hitoshi/glamspot/internal/model"
)

// TokenIssuer は認証ハンドラーが必要とするトークン発行インターフェース。
type TokenIssuer interface {
	Issue(identity auth.Identity) (*http.Cookie, error)
	Revoke() *http.Cookie
}

// AuthHandler はセッショントークンの発行・失効を扱うHTTPハンドラー。
type AuthHandler struct {
	tokens TokenIssuer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// IssueToken はボディのIDに対するトークンをCookieに設定する。
// POST /getJwtToken
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var identity auth.Identity
	if err := decodeJSONBody(r, &identity, false); err != nil {
		handleServiceError(w, err)
		return
	}

	cookie, err := h.tokens.Issue(identity)
	if errors.Is(err, auth.ErrEmailRequired) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewEmailRequiredError())
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, cookie)
	slog.Info("token issued", slog.String("email", identity.Email))
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// RevokeToken はトークンCookieを即時失効させる。
// POST /deleteJwtToken
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.tokens.Revoke())
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
