package id

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		got, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if len(got) != 26 {
			t.Fatalf("got length %d, want 26: %q", len(got), got)
		}
		if got != strings.ToLower(got) {
			t.Fatalf("id is not lowercase: %q", got)
		}
		if strings.ContainsAny(got, "=+/ ") {
			t.Fatalf("id contains unsafe characters: %q", got)
		}
		if _, dup := seen[got]; dup {
			t.Fatalf("duplicate id generated: %q", got)
		}
		seen[got] = struct{}{}
	}
}
