package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDevOverlayDefaults(t *testing.T) {
	overlay, err := LoadDevOverlay(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadDevOverlay: %v", err)
	}
	if overlay.HTTPPort != 8080 {
		t.Fatalf("expected default http port 8080, got %d", overlay.HTTPPort)
	}
	if !overlay.SimulateHID {
		t.Fatal("expected simulate_hid to default true")
	}
}

func TestLoadDevOverlayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nethid.yaml")
	contents := "http_port: 9090\nsimulate_hid: false\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write overlay file: %v", err)
	}

	overlay, err := LoadDevOverlay(path)
	if err != nil {
		t.Fatalf("LoadDevOverlay: %v", err)
	}
	if overlay.HTTPPort != 9090 {
		t.Fatalf("expected http_port 9090, got %d", overlay.HTTPPort)
	}
	if overlay.SimulateHID {
		t.Fatal("expected simulate_hid false from file")
	}
	if overlay.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %s", overlay.LogLevel)
	}
}
