package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLen    int
		wantParts int
	}{
		{"short", "hello", 10, 1},
		{"exact", "0123456789", 10, 1},
		{"split on space", "aaaaaaa bbbbbbb ccccccc", 10, 3},
		{"split on newline", "aaaaaa\nbbbbbb\ncccccc", 10, 3},
		{"no boundary", strings.Repeat("x", 25), 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, tt.maxLen)
			if len(parts) != tt.wantParts {
				t.Errorf("SplitMessage() = %q, want %d parts", parts, tt.wantParts)
			}
			if strings.Join(parts, "") != tt.text {
				t.Error("parts do not reassemble to the original text")
			}
			for _, p := range parts {
				if len(p) > tt.maxLen {
					t.Errorf("part %q longer than %d", p, tt.maxLen)
				}
			}
		})
	}
}

func TestSplitMessage_UTF8(t *testing.T) {
	text := strings.Repeat("привет", 10)

	parts := SplitMessage(text, 7)
	for _, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %q is not valid UTF-8", p)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts do not reassemble to the original text")
	}
}
