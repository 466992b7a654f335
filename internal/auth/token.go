// Package auth はセッショントークンの発行・検証・失効を提供する。
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName はセッショントークンを格納するCookie名。
const CookieName = "token"

// ErrBadToken は署名不正・期限切れ・形式不正のトークンを表す。
var ErrBadToken = errors.New("invalid token")

// ErrEmailRequired はメールアドレスのないIDでトークンを発行しようとした場合のエラー。
var ErrEmailRequired = errors.New("identity email is required")

// Identity はトークンに埋め込む利用者の識別情報。
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Claims はセッショントークンのペイロード。
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService はHS256署名のセッショントークンをCookieとして発行する。
// サーバー側に状態は持たず、失効はCookieの削除指示のみで行う。
type TokenService struct {
	secret     []byte
	ttl        time.Duration
	production bool
	now        func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// productionがtrueの場合、CookieはSameSite=None; Secureで発行される。
func NewTokenService(secret string, ttl time.Duration, production bool) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		ttl:        ttl,
		production: production,
		now:        time.Now,
	}
}

// Issue は署名済みトークンを生成し、それを格納したCookieを返す。
func (s *TokenService) Issue(identity Identity) (*http.Cookie, error) {
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	now := s.now()
	claims := Claims{
		Email: email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	cookie := s.baseCookie()
	cookie.Value = signed
	cookie.MaxAge = int(s.ttl.Seconds())
	return cookie, nil
}

// Parse はトークンの署名と有効期限を検証し、クレームを返す。
// HMAC以外の署名アルゴリズムは拒否する。
func (s *TokenService) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrBadToken
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Email == "" {
		return nil, ErrBadToken
	}
	return claims, nil
}

// Revoke は同じ属性で即時失効するCookieを返す。
// トークン自体は暗号的に無効化されない。
func (s *TokenService) Revoke() *http.Cookie {
	cookie := s.baseCookie()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

func (s *TokenService) baseCookie() *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if s.production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.production,
		SameSite: sameSite,
	}
}
