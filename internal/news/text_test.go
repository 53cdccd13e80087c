package news

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<p>Hello <b>World</b></p>", "Hello World"},
		{"plain text", "plain text"},
		{"&amp; &lt; &gt; &quot;", "& < > \""},
		{"<div>  多个   空格  </div>", "多个 空格"},
		{"<p>one</p><p>two</p>", "one two"},
		{"line<br/>break", "line break"},
		{"<script>alert(1)</script>visible", "visible"},
		{"<style>p{color:red}</style><p>styled</p>", "styled"},
		{"", ""},
	}

	for _, tc := range tests {
		got := stripHTML(tc.input)
		if got != tc.expected {
			t.Errorf("stripHTML(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("짧은 글", 200); got != "짧은 글" {
		t.Errorf("short text should not be truncated: %s", got)
	}
	if got := truncate("anything", 0); got != "anything" {
		t.Errorf("zero limit means no truncation: %s", got)
	}
	if got := truncate(strings.Repeat("뉴스", 600), -1); got != strings.Repeat("뉴스", 600) {
		t.Error("negative limit means no truncation")
	}

	long := strings.Repeat("한국어 뉴스 ", 50)
	got := truncate(long, 200)
	if runes := []rune(got); len(runes) != 203 {
		t.Errorf("truncated length should be 203 runes, got %d", len(runes))
	}
}
