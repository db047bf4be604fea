package utils

import (
	"testing"
	"unicode/utf8"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{-30, "30s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
	}

	for _, tt := range tests {
		if got := FormatRoundedUnit(tt.seconds); got != tt.want {
			t.Errorf("FormatRoundedUnit(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDwell(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{-5, "0m"},
		{59, "0m"},
		{42 * 60, "42m"},
		{2 * 3600, "2h"},
		{3600 + 5*60 + 30, "1h 5m"},
	}

	for _, tt := range tests {
		if got := FormatDwell(tt.seconds); got != tt.want {
			t.Errorf("FormatDwell(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"firefox", 30, "firefox"},
		{"org.gnome.Nautilus", 10, "org.gno..."},
		{"abcdef", 3, "abc"},
		{"émacs-éditeur", 8, "émacs..."},
		{"日本語エディタ", 5, "日本..."},
	}

	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}
