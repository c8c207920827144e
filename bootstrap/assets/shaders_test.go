package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func writeShader(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadShaderRepacksWords(t *testing.T) {
	dir := t.TempDir()
	// little-endian words 0x07230203 (the SPIR-V magic) and 0x00010000
	writeShader(t, dir, "triangle.vert.spv", []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})

	sm, err := NewShaderManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sm.Close() })

	blob, err := sm.LoadShader("triangle.vert")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blob.Data) != 8 {
		t.Fatalf("data size = %d, want 8", len(blob.Data))
	}
	want := []uint32{0x07230203, 0x00010000}
	if len(blob.Words) != len(want) {
		t.Fatalf("word count = %d, want %d", len(blob.Words), len(want))
	}
	for i := range want {
		if blob.Words[i] != want[i] {
			t.Errorf("word[%d] = %#x, want %#x", i, blob.Words[i], want[i])
		}
	}
}

func TestLoadShaderRejectsUnalignedSize(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "broken.frag.spv", []byte{0x01, 0x02, 0x03})

	sm, err := NewShaderManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sm.Close() })

	if _, err := sm.LoadShader("broken.frag.spv"); err == nil {
		t.Fatal("expected an error for a 3 byte blob")
	}
}

func TestLoadShaderMissingFile(t *testing.T) {
	sm, err := NewShaderManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sm.Close() })

	if _, err := sm.LoadShader("absent.vert"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestInitializeAndCloseTwice(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeShader(t, dir, "a.vert.spv", []byte{1, 2, 3, 4})

	sm, err := NewShaderManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := sm.Initialize(nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	sm.mutex.RLock()
	_, indexed := sm.shaders[filepath.Join(dir, "a.vert.spv")]
	sm.mutex.RUnlock()
	if !indexed {
		t.Error("existing shader was not indexed during initialize")
	}

	if err := sm.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sm.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
