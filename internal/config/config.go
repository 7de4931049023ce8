// Package config loads the controller's optional JSON configuration file.
// Every field is optional; the Get* accessors apply defaults so a missing
// or partial file behaves the same as explicit defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied by the Get* accessors.
const (
	DefaultPortPath      = "/dev/ttyUSB0"
	DefaultBaudRate      = 115200
	DefaultScrollDelay   = 70 * time.Millisecond
	DefaultDrawThreshold = 0.7
	DefaultDBPath        = "ledgrid.db"
	DefaultListenAddr    = ":8080"
)

// Config represents the controller configuration. The schema matches the
// flags accepted by the server so the same values can come from either
// place; flags win when both are set.
type Config struct {
	// Serial link
	PortPath *string `json:"port_path,omitempty"`
	BaudRate *int    `json:"baud_rate,omitempty"`

	// Rendering
	ScrollDelayMillis *int     `json:"scroll_delay_ms,omitempty"`
	DrawThreshold     *float64 `json:"draw_threshold,omitempty"`

	// Server
	DBPath     *string `json:"db_path,omitempty"`
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file is validated to ensure it
// has a .json extension and is under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) GetPortPath() string {
	if c != nil && c.PortPath != nil {
		return *c.PortPath
	}
	return DefaultPortPath
}

func (c *Config) GetBaudRate() int {
	if c != nil && c.BaudRate != nil {
		return *c.BaudRate
	}
	return DefaultBaudRate
}

func (c *Config) GetScrollDelay() time.Duration {
	if c != nil && c.ScrollDelayMillis != nil {
		return time.Duration(*c.ScrollDelayMillis) * time.Millisecond
	}
	return DefaultScrollDelay
}

func (c *Config) GetDrawThreshold() float64 {
	if c != nil && c.DrawThreshold != nil {
		return *c.DrawThreshold
	}
	return DefaultDrawThreshold
}

func (c *Config) GetDBPath() string {
	if c != nil && c.DBPath != nil {
		return *c.DBPath
	}
	return DefaultDBPath
}

func (c *Config) GetListenAddr() string {
	if c != nil && c.ListenAddr != nil {
		return *c.ListenAddr
	}
	return DefaultListenAddr
}
