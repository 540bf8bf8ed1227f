package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "My First Video",
			want:  "My First Video",
		},
		{
			name:  "scriptタグを除去する",
			input: `<script>alert("xss")</script>Title`,
			want:  "Title",
		},
		{
			name:  "装飾タグも除去してテキストだけ残す",
			input: "<strong>Big</strong> news",
			want:  "Big news",
		},
		{
			name:  "imgタグのon属性ごと除去する",
			input: `<img src=x onerror=alert(1)>caption`,
			want:  "caption",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "前後の空白を取り除く",
			input: "  hello  ",
			want:  "hello",
		},
		{
			name:  "日本語テキストはそのまま",
			input: "新作動画を公開しました",
			want:  "新作動画を公開しました",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 同一入力に対して常に同一出力を返す（冪等）
func TestTextSanitizer_Sanitize_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := `<b>bold</b> and plain`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q != %q", once, twice)
	}
}
