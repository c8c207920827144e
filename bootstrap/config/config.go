package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

type WindowConfig struct {
	Title     string `toml:"title"`
	PosX      uint32 `toml:"pos_x"`
	PosY      uint32 `toml:"pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type DeviceConfig struct {
	// PreferredType is one of "discrete", "integrated", "virtual", "cpu".
	PreferredType string `toml:"preferred_type"`
	AllowAnyType  bool   `toml:"allow_any_type"`
}

type SwapchainConfig struct {
	// VSync selects FIFO presentation; disabling it prefers Mailbox.
	VSync bool `toml:"vsync"`
}

type RendererConfig struct {
	Validation bool            `toml:"validation"`
	ShaderDir  string          `toml:"shader_dir"`
	Device     DeviceConfig    `toml:"device"`
	Swapchain  SwapchainConfig `toml:"swapchain"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Log      LogConfig      `toml:"log"`
	Renderer RendererConfig `toml:"renderer"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:     "Ignite",
			PosX:      100,
			PosY:      100,
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Log: LogConfig{
			Level: "debug",
		},
		Renderer: RendererConfig{
			Validation: true,
			ShaderDir:  "assets/shaders",
			Device: DeviceConfig{
				PreferredType: "discrete",
				AllowAnyType:  true,
			},
			Swapchain: SwapchainConfig{
				VSync: true,
			},
		},
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not an
// error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no configuration file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
