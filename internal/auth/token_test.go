package auth

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-token-secret-32bytes-long!!"

func newTestService(production bool) *TokenService {
	return NewTokenService(testSecret, 4*time.Hour, production)
}

func TestIssue_ThenParse_ReturnsIdentity(t *testing.T) {
	svc := newTestService(false)

	cookie, err := svc.Issue(Identity{Email: "a@x.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if cookie.Name != CookieName {
		t.Errorf("cookie name = %q, want %q", cookie.Name, CookieName)
	}

	claims, err := svc.Parse(cookie.Value)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("email = %q, want %q", claims.Email, "a@x.com")
	}
	if claims.Name != "Alice" {
		t.Errorf("name = %q, want %q", claims.Name, "Alice")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 4*time.Hour {
		t.Errorf("token lifetime = %v, want 4h", got)
	}
}

func TestIssue_EmptyEmail_ReturnsError(t *testing.T) {
	svc := newTestService(false)

	_, err := svc.Issue(Identity{Email: "  "})
	if !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}

func TestIssue_CookieAttributes(t *testing.T) {
	tests := []struct {
		name         string
		production   bool
		wantSameSite http.SameSite
		wantSecure   bool
	}{
		{"開発環境はStrictかつ非Secure", false, http.SameSiteStrictMode, false},
		{"本番環境はNoneかつSecure", true, http.SameSiteNoneMode, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.production)

			cookie, err := svc.Issue(Identity{Email: "a@x.com"})
			if err != nil {
				t.Fatalf("Issue returned error: %v", err)
			}
			if !cookie.HttpOnly {
				t.Error("cookie must be HttpOnly")
			}
			if cookie.Path != "/" {
				t.Errorf("path = %q, want /", cookie.Path)
			}
			if cookie.SameSite != tt.wantSameSite {
				t.Errorf("SameSite = %v, want %v", cookie.SameSite, tt.wantSameSite)
			}
			if cookie.Secure != tt.wantSecure {
				t.Errorf("Secure = %v, want %v", cookie.Secure, tt.wantSecure)
			}
			if cookie.MaxAge != int((4 * time.Hour).Seconds()) {
				t.Errorf("MaxAge = %d, want %d", cookie.MaxAge, int((4 * time.Hour).Seconds()))
			}
		})
	}
}

func TestParse_ExpiredToken_ReturnsErrBadToken(t *testing.T) {
	svc := newTestService(false)
	issuedAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	cookie, err := svc.Issue(Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(4*time.Hour + time.Second) }

	if _, err := svc.Parse(cookie.Value); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for expired token, got %v", err)
	}
}

func TestParse_JustBeforeExpiry_Succeeds(t *testing.T) {
	svc := newTestService(false)
	issuedAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	cookie, err := svc.Issue(Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(4*time.Hour - time.Minute) }

	if _, err := svc.Parse(cookie.Value); err != nil {
		t.Fatalf("expected token to be valid, got %v", err)
	}
}

func TestParse_WrongSecret_ReturnsErrBadToken(t *testing.T) {
	issuer := NewTokenService("another-secret", 4*time.Hour, false)
	cookie, err := issuer.Issue(Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := newTestService(false).Parse(cookie.Value); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestParse_MalformedInput_ReturnsErrBadToken(t *testing.T) {
	svc := newTestService(false)

	for _, raw := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 300)} {
		if _, err := svc.Parse(raw); !errors.Is(err, ErrBadToken) {
			t.Errorf("Parse(%q): expected ErrBadToken, got %v", raw, err)
		}
	}
}

func TestParse_TamperedPayload_ReturnsErrBadToken(t *testing.T) {
	svc := newTestService(false)
	cookie, err := svc.Issue(Identity{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	parts := strings.Split(cookie.Value, ".")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "mallory@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forgedRaw, err := forged.SignedString([]byte("attacker"))
	if err != nil {
		t.Fatalf("failed to sign forged token: %v", err)
	}
	// 正規の署名を偽造ペイロードに付け替える
	fp := strings.Split(forgedRaw, ".")
	tampered := fp[0] + "." + fp[1] + "." + parts[2]

	if _, err := svc.Parse(tampered); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestParse_NoneAlgorithm_Rejected(t *testing.T) {
	svc := newTestService(false)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := svc.Parse(raw); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for alg=none, got %v", err)
	}
}

func TestParse_MissingExpiry_Rejected(t *testing.T) {
	svc := newTestService(false)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "a@x.com"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.Parse(raw); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for token without exp, got %v", err)
	}
}

func TestRevoke_ClearsCookieWithMatchingAttributes(t *testing.T) {
	for _, production := range []bool{false, true} {
		svc := newTestService(production)

		issued, err := svc.Issue(Identity{Email: "a@x.com"})
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		revoked := svc.Revoke()

		if revoked.Name != issued.Name || revoked.Path != issued.Path {
			t.Errorf("name/path mismatch: got %q %q", revoked.Name, revoked.Path)
		}
		if revoked.SameSite != issued.SameSite || revoked.Secure != issued.Secure || !revoked.HttpOnly {
			t.Errorf("attributes mismatch (production=%v)", production)
		}
		if revoked.MaxAge != -1 {
			t.Errorf("MaxAge = %d, want -1", revoked.MaxAge)
		}
		if revoked.Value != "" {
			t.Errorf("Value = %q, want empty", revoked.Value)
		}
	}
}
