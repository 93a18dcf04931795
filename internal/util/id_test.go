package util

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id := NewID("")
	if len(id) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", id)
	}
	if _, err := hex.DecodeString(id); err != nil {
		t.Fatalf("not hex: %q", id)
	}

	prefixed := NewID("sf")
	if !strings.HasPrefix(prefixed, "sf_") || len(prefixed) != 35 {
		t.Fatalf("unexpected prefixed id %q", prefixed)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID("")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
