package recording

import (
	"path/filepath"
	"testing"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	r := New("captured", 1, 40)
	r.AddFrame(0, []int{5, 10})
	r.AddFrame(25, []int{6, 11})
	r.SourceIP = "192.168.1.50"

	dir := t.TempDir()
	path := filepath.Join(dir, "captured.dmxr")

	if err := Save(r, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if r.FilePath != path {
		t.Errorf("FilePath = %q, want %q", r.FilePath, path)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Name != "captured" || loaded.Universe != 1 || loaded.SourceIP != "192.168.1.50" {
		t.Errorf("loaded = %+v, want matching name/universe/source_ip", loaded)
	}
	if len(loaded.Frames) != 2 {
		t.Fatalf("loaded.Frames = %v, want 2 frames", loaded.Frames)
	}
}

func TestSave_CreatesParentDirectories(t *testing.T) {
	r := New("nested", 0, 40)
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "nested.dmxr")

	if err := Save(r, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, err := Load(path); err != nil {
		t.Fatalf("Load after nested Save error: %v", err)
	}
}

func TestLoad_MissingNameFallsBackToFileStem(t *testing.T) {
	r := &Recording{Version: "1.0", FPS: 40}
	dir := t.TempDir()
	path := filepath.Join(dir, "unnamed-take.dmxr")

	if err := Save(r, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Name != "unnamed-take" {
		t.Errorf("Name = %q, want %q", loaded.Name, "unnamed-take")
	}
}
