package textutil_test

import (
	"testing"

	"bindery/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"slashes become dashes", "Saga/Volume 1", "Saga-Volume 1"},
		{"colons become dashes", "Batman: Year One", "Batman- Year One"},
		{"quotes removed", `The "Best" Issue`, "The Best Issue"},
		{"question marks removed", "What If?", "What If"},
		{"whitespace trimmed", "  Y The Last Man  ", "Y The Last Man"},
		{"empty stays empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.input); got != tc.expected {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	seen := make(map[string]struct{})

	if got := textutil.UniqueName("issue.cbz", seen); got != "issue.cbz" {
		t.Fatalf("first use should keep the name, got %q", got)
	}
	if got := textutil.UniqueName("issue.cbz", seen); got != "issue (2).cbz" {
		t.Fatalf("second use should suffix before extension, got %q", got)
	}
	if got := textutil.UniqueName("issue.cbz", seen); got != "issue (3).cbz" {
		t.Fatalf("third use should keep counting, got %q", got)
	}
}

func TestUniqueNameWithoutExtension(t *testing.T) {
	seen := make(map[string]struct{})
	textutil.UniqueName("cover", seen)
	if got := textutil.UniqueName("cover", seen); got != "cover (2)" {
		t.Fatalf("expected suffix appended to extensionless name, got %q", got)
	}
}
