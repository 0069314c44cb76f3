package db

import (
	"path/filepath"
	"testing"
)

// TestSharedHandleOutlivesFirstClose checks that a handle stays usable until
// every Open has been closed
func TestSharedHandleOutlivesFirstClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shared.duckdb")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if first != second {
		t.Fatal("Expected the same handle for the same path")
	}

	if err := Close(path); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := second.Ping(); err != nil {
		t.Fatalf("Handle closed while still referenced: %v", err)
	}

	if err := Close(path); err != nil {
		t.Fatalf("last Close failed: %v", err)
	}
	if err := second.Ping(); err == nil {
		t.Error("Handle should be closed after the last Close")
	}
	if err := Close(path); err != nil {
		t.Errorf("Close of an unknown path should be a no-op, got %v", err)
	}
}
