// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は出品者が入力したタイトルや説明文からマークアップを取り除く。
// 出力はbluemondayがエスケープしたHTML安全なテキストであり、デコードはしない。
// メッセージ本文はこのパッケージを通さず、入力をそのまま保存する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力からHTMLタグを除去し、残りの文字をHTMLエスケープして返す。
	// script, styleタグは中身ごと除去される。前後の空白は取り除く。
	// 出力を再度渡しても結果は変わらない。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを除去したエスケープ済みテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
