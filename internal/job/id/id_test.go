package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	// Check format
	if !strings.HasPrefix(id, Prefix) {
		t.Errorf("expected ID to start with %q, got %s", Prefix, id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, Prefix)); err != nil {
		t.Errorf("expected a UUID suffix, got %s: %v", id, err)
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
