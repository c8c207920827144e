package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := Default()
	if cfg.Window.Width != def.Window.Width || cfg.Window.Height != def.Window.Height {
		t.Errorf("window defaults not applied: got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level default = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Renderer.Swapchain.VSync {
		t.Error("vsync should default to true")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignite.toml")
	doc := `
[window]
title = "Custom"
width = 640
height = 480

[log]
level = "warn"

[renderer]
validation = false

[renderer.device]
preferred_type = "integrated"
allow_any_type = false

[renderer.swapchain]
vsync = false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Window.Title != "Custom" {
		t.Errorf("title = %q, want Custom", cfg.Window.Title)
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Renderer.Validation {
		t.Error("validation should be disabled")
	}
	if cfg.Renderer.Device.PreferredType != "integrated" {
		t.Errorf("preferred_type = %q, want integrated", cfg.Renderer.Device.PreferredType)
	}
	if cfg.Renderer.Device.AllowAnyType {
		t.Error("allow_any_type should be false")
	}
	if cfg.Renderer.Swapchain.VSync {
		t.Error("vsync should be false")
	}
	// untouched sections keep their defaults
	if cfg.Window.PosX != 100 || cfg.Window.PosY != 100 {
		t.Errorf("position = %d,%d, want defaults", cfg.Window.PosX, cfg.Window.PosY)
	}
	if cfg.Renderer.ShaderDir != "assets/shaders" {
		t.Errorf("shader_dir = %q, want default", cfg.Renderer.ShaderDir)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[window\nwidth = ??"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
