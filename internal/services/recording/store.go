package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Extension is the file suffix recordings are saved under.
const Extension = ".dmxr"

// Save writes the recording to path as a .dmxr document, creating parent
// directories as needed.
func Save(r *Recording, path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recording: create directory: %w", err)
		}
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("recording: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recording: write %s: %w", path, err)
	}
	r.FilePath = path
	return nil
}

// Load reads a .dmxr document from path.
func Load(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recording: read %s: %w", path, err)
	}

	var r Recording
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("recording: decode %s: %w", path, err)
	}
	if r.Name == "" {
		r.Name = baseNameWithoutExt(path)
	}
	r.FilePath = path
	return &r, nil
}

func baseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
