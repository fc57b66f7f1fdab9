// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はbluemondayのStrictPolicyでプロジェクト名やタスクの説明などの
// 自由入力からHTMLマークアップを取り除く。IsPlainText はサニタイズで変化する入力、
// つまりタグとして解釈される部分を含む入力を検出する。入力を書き換えて保存する
// 代わりに、境界層でこれを使って拒否する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize はマークアップを除去したプレーンテキストを返す。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// TextSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフで、複数リクエストから共有できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はマークアップを除去したプレーンテキストを返す。
// StrictPolicyはテキストをHTMLエスケープするため、保存前に元の文字へ戻す。
func (s *TextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// IsPlainText はtextがサニタイズで変化しない（マークアップを含まない）かを返す。
// 前後の空白の違いは無視する。
func IsPlainText(s TextSanitizerService, text string) bool {
	trimmed := strings.TrimSpace(text)
	return s.Sanitize(trimmed) == trimmed
}

var _ TextSanitizerService = (*TextSanitizer)(nil)
