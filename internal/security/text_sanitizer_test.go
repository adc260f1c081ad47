package security

import (
	"testing"
)

func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "まだ購入可能ですか？",
			want:  "まだ購入可能ですか？",
		},
		{
			name:  "タグは除去され中身は残る",
			input: "<b>値下げ</b>は可能ですか",
			want:  "値下げは可能ですか",
		},
		{
			name:  "scriptタグは中身ごと除去される",
			input: "こんにちは<script>alert('xss')</script>",
			want:  "こんにちは",
		},
		{
			name:  "イベント属性付きタグも除去される",
			input: `<img src="x" onerror="alert(1)">試乗希望`,
			want:  "試乗希望",
		},
		{
			name:  "タグに見える語は除去される",
			input: "<hello>",
			want:  "",
		},
		{
			name:  "文中のタグは除去され前後の文字は残る",
			input: "a <b> c",
			want:  "a  c",
		},
		{
			name:  "文字参照はエスケープされたまま残る",
			input: "&lt;script&gt;alert(1)&lt;/script&gt;",
			want:  "&lt;script&gt;alert(1)&lt;/script&gt;",
		},
		{
			name:  "アンパサンドはエスケープされる",
			input: "A&B",
			want:  "A&amp;B",
		},
		{
			name:  "前後の空白は取り除く",
			input: "  \n 走行距離は？ \t",
			want:  "走行距離は？",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "タグのみの入力は空になる",
			input: "<p></p><br>",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"<p>段落</p>テキスト",
		"価格 &amp; 条件",
		"A&B",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"<a href=\"javascript:alert(1)\">リンク</a>",
	}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize is not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
