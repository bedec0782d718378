package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力からHTMLを取り除きプレーンテキストにする。
// サポートメッセージや車両のメーカー名・モデル名・色の保存前に使用する。
type TextSanitizer interface {
	// Sanitize はすべてのタグを除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(input string) string
}

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去する。StrictPolicyがエスケープした文字実体参照は元の文字に戻す。
func (s *textSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	stripped := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

var _ TextSanitizer = (*textSanitizer)(nil)
