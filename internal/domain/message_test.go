package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview_ShortContentUntouched(t *testing.T) {
	m := &Message{Content: "hello"}
	if got := m.Preview(); got != "hello" {
		t.Fatalf("Preview() = %q, want %q", got, "hello")
	}
}

func TestPreview_ExactLimitUntouched(t *testing.T) {
	content := strings.Repeat("x", 50)
	m := &Message{Content: content}
	if got := m.Preview(); got != content {
		t.Fatalf("Preview() = %q, want untouched content", got)
	}
}

func TestPreview_TruncatesLongContent(t *testing.T) {
	m := &Message{Content: strings.Repeat("x", 60)}
	want := strings.Repeat("x", 50) + "..."
	if got := m.Preview(); got != want {
		t.Fatalf("Preview() = %q, want %q", got, want)
	}
}

func TestPreview_CountsRunesNotBytes(t *testing.T) {
	// 30 кириллических символов это 60 байт, но всего 30 символов —
	// обрезать нечего.
	content := strings.Repeat("п", 30)
	m := &Message{Content: content}
	if got := m.Preview(); got != content {
		t.Fatalf("Preview() = %q, want untouched content", got)
	}

	m = &Message{Content: strings.Repeat("п", 60)}
	got := m.Preview()
	want := strings.Repeat("п", 50) + "..."
	if got != want {
		t.Fatalf("Preview() = %q, want %q", got, want)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("Preview() produced invalid UTF-8: %q", got)
	}
}
