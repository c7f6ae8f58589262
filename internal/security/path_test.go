package security

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWithinValidPath(t *testing.T) {
	base := t.TempDir()

	resolved, err := ResolveWithin(base, "audits", "report.json")
	if err != nil {
		t.Fatalf("ResolveWithin returned error: %v", err)
	}
	if !strings.HasPrefix(resolved, base) {
		t.Fatalf("expected resolved path %s to stay within base %s", resolved, base)
	}
	expected := filepath.Join(base, "audits", "report.json")
	if resolved != expected {
		t.Errorf("expected %s, got %s", expected, resolved)
	}
}

func TestResolveWithinBlocksEscape(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name  string
		elems []string
	}{
		{"double escape", []string{"..", ".."}},
		{"escape with path", []string{"..", "..", "etc", "passwd"}},
		{"relative escape", []string{"a", "..", "..", "etc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveWithin(base, tt.elems...)
			if err == nil {
				t.Fatal("expected path escape error")
			}
			if !strings.Contains(err.Error(), "escapes base directory") {
				t.Errorf("expected escape error, got: %v", err)
			}
		})
	}
}

func TestResolveWithinSafeTraversal(t *testing.T) {
	base := t.TempDir()

	// a/b/../c stays inside base after cleaning
	resolved, err := ResolveWithin(base, "a", "b", "..", "c")
	if err != nil {
		t.Fatalf("unexpected error for safe traversal: %v", err)
	}
	expected := filepath.Join(base, "a", "c")
	if resolved != expected {
		t.Errorf("expected %s, got %s", expected, resolved)
	}
}

func TestResolveWithinEmptyBase(t *testing.T) {
	_, err := ResolveWithin("", "some", "path")
	if err == nil {
		t.Fatal("expected error for empty base directory")
	}
}

func TestResolveWithinAbsoluteElement(t *testing.T) {
	base := t.TempDir()

	// absolute elements are joined under base, not honored
	resolved, err := ResolveWithin(base, "/etc/passwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(resolved, base) {
		t.Errorf("resolved path %s should be within base %s", resolved, base)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid style", "9f3c1a2e-77d4-4b5f-8a01-2c90e5d1b0aa", false},
		{"plain name", "retail_q3", false},
		{"mixed case", "Audit-2026", false},
		{"empty", "", true},
		{"dot traversal", "../secrets", true},
		{"separator", "a/b", true},
		{"space", "my list", true},
		{"cyrillic", "аудит", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateID(%q) expected error, got nil", tt.id)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateID(%q) unexpected error: %v", tt.id, err)
			}
		})
	}
}
