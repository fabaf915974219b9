package htmlconv

import (
	"strings"
	"testing"
)

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"DOCTYPE HTML", "<!DOCTYPE html><html><body>Test</body></html>", true},
		{"Simple HTML with tags", "<div><p>Hello</p><p>World</p></div>", true},
		{"Plain text", "This is just plain text without any HTML", false},
		{"Markdown with code", "Here's some code: `<div>test</div>`", false},
		{"Single HTML tag", "Check out <a href='test.com'>this link</a>", false},
		{"Multiple HTML tags", "<h1>Title</h1><p>Paragraph 1</p><p>Paragraph 2</p>", true},
		{"Email-style angle brackets", "Contact me at <user@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHTML(tt.input); got != tt.expected {
				t.Errorf("isHTML() = %v, want %v for input: %s", got, tt.expected, tt.input)
			}
		})
	}
}

func TestConvertIfHTML(t *testing.T) {
	out, converted := ConvertIfHTML("<h1>Title</h1><p>Paragraph text</p><script>alert(1)</script>")
	if !converted {
		t.Fatalf("expected conversion")
	}
	if !strings.Contains(out, "# Title") || !strings.Contains(out, "Paragraph text") {
		t.Errorf("unexpected markdown: %q", out)
	}
	if strings.Contains(out, "alert") {
		t.Errorf("script content should be dropped: %q", out)
	}

	plain := "Steps to reproduce:\n1. run `make`"
	out, converted = ConvertIfHTML(plain)
	if converted || out != plain {
		t.Errorf("plain text must pass through, got %q (converted=%v)", out, converted)
	}
}

func TestToMarkdownSnippet(t *testing.T) {
	out := ToMarkdown("Use <b>context.WithTimeout</b> to bound calls")
	if !strings.Contains(out, "**context.WithTimeout**") {
		t.Errorf("expected bold markdown, got %q", out)
	}
	if ToMarkdown("no tags here") != "no tags here" {
		t.Errorf("text without tags must be unchanged")
	}
}

func TestCleanMarkdown(t *testing.T) {
	if got := cleanMarkdown("\n\na\n\n\n\nb\n\n"); got != "a\n\nb" {
		t.Errorf("cleanMarkdown() = %q", got)
	}
}
