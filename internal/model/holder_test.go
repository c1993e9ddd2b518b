package model

import (
	"os"
	"path/filepath"
	"testing"
)

// testModelPath resolves the whisper model used by integration-ish
// tests. Tests skip when it has not been downloaded.
func testModelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.en.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s: %v", path, err)
	}
	return path
}

func TestHolderEmpty(t *testing.T) {
	h := NewHolder()

	if h.IsLoaded() {
		t.Error("IsLoaded() = true for empty holder")
	}
	if snap := h.Current(); snap != nil {
		t.Error("Current() != nil for empty holder")
	}
	if h.Path() != "" {
		t.Errorf("Path() = %q, want empty", h.Path())
	}
}

func TestLoadBadPathLeavesHolderEmpty(t *testing.T) {
	h := NewHolder()

	if err := h.Load("/nonexistent/model.bin"); err == nil {
		t.Fatal("Load with bad path should return error")
	}
	if h.IsLoaded() {
		t.Error("IsLoaded() = true after failed Load")
	}
}

func TestLoadAndSnapshot(t *testing.T) {
	path := testModelPath(t)

	h := NewHolder()
	if err := h.Load(path); err != nil {
		t.Fatalf("Load(%q): %v", path, err)
	}
	defer h.Close()

	if !h.IsLoaded() {
		t.Fatal("IsLoaded() = false after Load")
	}

	snap := h.Current()
	if snap == nil {
		t.Fatal("Current() = nil after Load")
	}
	if snap.Path() != path {
		t.Errorf("snapshot Path() = %q, want %q", snap.Path(), path)
	}
	snap.Release()
}

func TestFailedReloadKeepsPrevious(t *testing.T) {
	path := testModelPath(t)

	h := NewHolder()
	if err := h.Load(path); err != nil {
		t.Fatalf("Load(%q): %v", path, err)
	}
	defer h.Close()

	if err := h.Load("/nonexistent/model.bin"); err == nil {
		t.Fatal("reload with bad path should return error")
	}

	if !h.IsLoaded() {
		t.Error("failed reload cleared the previously loaded model")
	}
	if h.Path() != path {
		t.Errorf("Path() = %q after failed reload, want %q", h.Path(), path)
	}
}
