// Package security は利用者入力の無害化を提供する。
//
// HTMLとして描画されるサービス説明文はbluemondayのポリシーで書式タグのみに
// 絞り込む。画像URLはhttp/httpsのみを受け付ける。サービス名や予約メモなどの
// プレーンテキストはJSON文字列としてそのまま保存する。
package security

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は自由入力の無害化インターフェース。
type Sanitizer interface {
	// RichText は書式タグ（p, br, ul, ol, li, strong, em）のみを残したHTMLを返す。
	RichText(raw string) string
	// URL はhttp/httpsの絶対URLのみを返し、それ以外は空文字列を返す。
	URL(raw string) string
}

// InputSanitizer はbluemondayを使ったSanitizerの実装。
// ポリシーは生成後に変更しないため、複数goroutineから安全に利用できる。
type InputSanitizer struct {
	rich *bluemonday.Policy
}

var _ Sanitizer = (*InputSanitizer)(nil)

// NewInputSanitizer はInputSanitizerを生成する。
func NewInputSanitizer() *InputSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	return &InputSanitizer{rich: rich}
}

// RichText は書式タグのみを残したHTMLを返す。
func (s *InputSanitizer) RichText(raw string) string {
	return strings.TrimSpace(s.rich.Sanitize(raw))
}

// URL はhttp/httpsの絶対URLのみを返し、それ以外は空文字列を返す。
func (s *InputSanitizer) URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
