package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowshow/playback-engine/internal/config"
)

func TestPrintBanner(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	cfg := &config.Config{
		Env:              "test",
		DMXTransportKind: "artnet",
		DatabaseURL:      "test.db",
		ConfigDir:        "./config",
	}

	printBanner(cfg)

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	if !strings.Contains(output, "Playback Engine") {
		t.Error("expected 'Playback Engine' in banner")
	}
	if !strings.Contains(output, "Environment:   test") {
		t.Error("expected environment in banner")
	}
	if !strings.Contains(output, "DMX transport: artnet") {
		t.Error("expected transport kind in banner")
	}
}

func TestVersionVariables(t *testing.T) {
	if Version == "" || BuildTime == "" || GitCommit == "" {
		t.Error("version variables should have default values")
	}
}

func TestBuildTransport_UnknownKindErrors(t *testing.T) {
	cfg := &config.Config{DMXTransportKind: "telepathy"}
	if _, err := buildTransport(cfg); err == nil {
		t.Error("expected an error for an unknown transport kind")
	}
}

func TestBuildTransport_EachKnownKind(t *testing.T) {
	for _, kind := range []string{"artnet", "sacn", "serial-open", "serial-pro"} {
		cfg := &config.Config{
			DMXTransportKind: kind,
			ArtNetTargetIP:   "255.255.255.255",
			ArtNetPort:       6454,
			SerialPort:       "/dev/ttyUSB0",
			SerialBaud:       250000,
		}
		if _, err := buildTransport(cfg); err != nil {
			t.Errorf("kind %q: unexpected error: %v", kind, err)
		}
	}
}

func TestBuildTransport_ArtNetAutoBroadcastResolves(t *testing.T) {
	cfg := &config.Config{
		DMXTransportKind: "artnet",
		ArtNetTargetIP:   "auto-broadcast",
		ArtNetPort:       6454,
	}
	if _, err := buildTransport(cfg); err != nil {
		t.Errorf("unexpected error resolving auto-broadcast: %v", err)
	}
}

func TestLoadProjectFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show.json")
	content := `{"ID":"show1","Name":"Demo","Scenes":[{"ID":"scene1","Name":"One"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write project file: %v", err)
	}

	proj, err := loadProjectFile(path)
	if err != nil {
		t.Fatalf("loadProjectFile: %v", err)
	}
	if proj.ID != "show1" || len(proj.Scenes) != 1 || proj.Scenes[0].ID != "scene1" {
		t.Errorf("unexpected project contents: %+v", proj)
	}
}

func TestLoadProjectFile_MissingFileErrors(t *testing.T) {
	if _, err := loadProjectFile("/nonexistent/show.json"); err == nil {
		t.Error("expected an error for a missing project file")
	}
}
