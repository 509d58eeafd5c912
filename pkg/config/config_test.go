package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfigIsValid makes sure the shipped defaults pass validation
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Gate.Threshold != 50 {
		t.Errorf("Expected default gate threshold 50, got %d", cfg.Gate.Threshold)
	}
	if cfg.DualModel() {
		t.Error("Expected single-model default")
	}

	cfg.Models.Secondary.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default dual-model config is invalid: %v", err)
	}
}

// TestLoadConfigMissingFile returns defaults for a missing file
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Grid.PatchSize != 512 {
		t.Errorf("Expected default patch size, got %d", cfg.Grid.PatchSize)
	}
}

// TestSaveAndLoadConfig round-trips a modified config through YAML
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "wsiseg.yaml")

	cfg := DefaultConfig()
	cfg.Grid.PatchSize = 1024
	cfg.Grid.Origin = "aligned"
	cfg.Models.Secondary.Enabled = true
	cfg.Overlay.Factor = 16
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Grid.PatchSize != 1024 || loaded.Grid.Origin != "aligned" {
		t.Errorf("Grid settings not preserved: %+v", loaded.Grid)
	}
	if !loaded.DualModel() || loaded.Overlay.Factor != 16 {
		t.Error("Model or overlay settings not preserved")
	}
}

// TestLoadConfigPartial keeps defaults for keys the file leaves out
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "gate:\n  threshold: 10\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Gate.Threshold != 10 {
		t.Errorf("Expected threshold 10, got %d", cfg.Gate.Threshold)
	}
	if cfg.Grid.ModelPatchSize != 512 {
		t.Errorf("Expected default model patch size, got %d", cfg.Grid.ModelPatchSize)
	}
}

// TestLoadConfigRejectsInvalid surfaces parse and validation errors
func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("grid: [1, 2"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("Expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("grid:\n  patchSize: -1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(invalid); err == nil {
		t.Error("Expected validation error")
	}
}

// TestValidate covers the cross-field rules
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero model patch", func(c *Config) { c.Grid.ModelPatchSize = 0 }},
		{"unknown origin", func(c *Config) { c.Grid.Origin = "centered" }},
		{"unknown extractor", func(c *Config) { c.Grid.Extractor = "stream" }},
		{"unknown edge policy", func(c *Config) { c.Gate.EdgePolicy = "wrap" }},
		{"background out of range", func(c *Config) { c.Classes.Background = 300 }},
		{"shift overflows byte", func(c *Config) {
			c.Models.Secondary.Enabled = true
			c.Classes.Shift = 250
			c.Models.Secondary.Classes = 10
		}},
		{"shift overlaps primary", func(c *Config) {
			c.Models.Secondary.Enabled = true
			c.Classes.Shift = 3
		}},
		{"too few colors", func(c *Config) { c.Colors = c.Colors[:2] }},
		{"bad color", func(c *Config) { c.Colors[0] = "nope" }},
		{"zero overlay factor", func(c *Config) { c.Overlay.Factor = 0 }},
		{"zero display size", func(c *Config) { c.Output.DisplayPatchSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
