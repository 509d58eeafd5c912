// Package config provides configuration loading and management for wsiseg.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"wsiseg/pkg/slide"
	"wsiseg/pkg/tissue"
	"wsiseg/pkg/visualization"
)

// ModelConfig identifies a model and the normalization it was trained with
type ModelConfig struct {
	// Enabled only matters for the secondary model
	Enabled bool `yaml:"enabled"`

	// Encoder and Weights select the normalizer
	Encoder string `yaml:"encoder"`
	Weights string `yaml:"weights"`

	// Classes is the number of output channels of the model
	Classes int `yaml:"classes"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Patch grid parameters
	Grid struct {
		// PatchSize is the side of a grid cell at full resolution
		PatchSize int `yaml:"patchSize"`

		// ModelPatchSize is the side of the model input and of each mosaic cell
		ModelPatchSize int `yaml:"modelPatchSize"`

		// Columns and Rows of 0 are derived from the slide dimensions
		Columns int `yaml:"columns"`
		Rows    int `yaml:"rows"`

		// Origin is "offset-by-one" or "aligned"
		Origin string `yaml:"origin"`

		// Extractor is "array" or "region"
		Extractor string `yaml:"extractor"`
	} `yaml:"grid"`

	// Tissue gate parameters
	Gate struct {
		Threshold int `yaml:"threshold"`

		// EdgePolicy is "auto", "pad" or "reject"
		EdgePolicy string `yaml:"edgePolicy"`
	} `yaml:"gate"`

	// Class ids shared by both models
	Classes struct {
		Background int `yaml:"background"`
		Tumor      int `yaml:"tumor"`
		Shift      int `yaml:"shift"`
	} `yaml:"classes"`

	Models struct {
		Primary   ModelConfig `yaml:"primary"`
		Secondary ModelConfig `yaml:"secondary"`
	} `yaml:"models"`

	Overlay struct {
		Enabled bool    `yaml:"enabled"`
		Factor  float64 `yaml:"factor"`
	} `yaml:"overlay"`

	Output struct {
		// DisplayPatchSize is the side of one grid cell in the display image
		DisplayPatchSize int `yaml:"displayPatchSize"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// JSONLogs switches from console to JSON log lines
		JSONLogs bool `yaml:"jsonLogs"`
	} `yaml:"output"`

	// Colors holds one hex color per class id, starting at class 1
	Colors []string `yaml:"colors"`

	// Device names the compute target handed to the model runtime
	Device string `yaml:"device"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.PatchSize = 512
	cfg.Grid.ModelPatchSize = 512
	cfg.Grid.Origin = slide.OriginOffsetByOne.String()
	cfg.Grid.Extractor = "region"

	cfg.Gate.Threshold = tissue.DefaultThreshold
	cfg.Gate.EdgePolicy = tissue.EdgeAuto.String()

	cfg.Classes.Background = 0
	cfg.Classes.Tumor = 1
	cfg.Classes.Shift = 10

	cfg.Models.Primary = ModelConfig{Enabled: true, Encoder: "resnet34", Weights: "imagenet", Classes: 6}
	cfg.Models.Secondary = ModelConfig{Enabled: false, Encoder: "resnet34", Weights: "imagenet", Classes: 4}

	cfg.Overlay.Enabled = true
	cfg.Overlay.Factor = 8

	cfg.Output.DisplayPatchSize = 200

	cfg.Colors = visualization.DefaultColors()
	cfg.Device = "cpu"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// DualModel reports whether the secondary classifier is part of the chain
func (c *Config) DualModel() bool {
	return c.Models.Secondary.Enabled
}

// Validate checks ranges and cross-field constraints
func (c *Config) Validate() error {
	if c.Grid.PatchSize <= 0 {
		return fmt.Errorf("grid.patchSize must be positive, got %d", c.Grid.PatchSize)
	}
	if c.Grid.ModelPatchSize <= 0 {
		return fmt.Errorf("grid.modelPatchSize must be positive, got %d", c.Grid.ModelPatchSize)
	}
	if c.Grid.Columns < 0 || c.Grid.Rows < 0 {
		return fmt.Errorf("grid.columns and grid.rows cannot be negative")
	}
	if _, err := slide.ParseOriginPolicy(c.Grid.Origin); err != nil {
		return fmt.Errorf("grid.origin: %w", err)
	}
	if c.Grid.Extractor != "array" && c.Grid.Extractor != "region" {
		return fmt.Errorf("grid.extractor must be array or region, got %q", c.Grid.Extractor)
	}
	if c.Gate.Threshold < 0 {
		return fmt.Errorf("gate.threshold cannot be negative, got %d", c.Gate.Threshold)
	}
	if _, err := tissue.ParseEdgePolicy(c.Gate.EdgePolicy); err != nil {
		return fmt.Errorf("gate.edgePolicy: %w", err)
	}

	if err := classID("classes.background", c.Classes.Background); err != nil {
		return err
	}
	if err := classID("classes.tumor", c.Classes.Tumor); err != nil {
		return err
	}
	if err := classID("classes.shift", c.Classes.Shift); err != nil {
		return err
	}

	if c.Models.Primary.Classes <= 0 || c.Models.Primary.Classes > 256 {
		return fmt.Errorf("models.primary.classes must be in 1..256, got %d", c.Models.Primary.Classes)
	}
	maxClass := c.Models.Primary.Classes - 1
	if c.DualModel() {
		sec := c.Models.Secondary
		if sec.Classes <= 0 {
			return fmt.Errorf("models.secondary.classes must be positive, got %d", sec.Classes)
		}
		if top := sec.Classes - 1 + c.Classes.Shift; top > 255 {
			return fmt.Errorf("secondary class %d shifted by %d does not fit a label byte",
				sec.Classes-1, c.Classes.Shift)
		} else if top > maxClass {
			maxClass = top
		}
		if c.Classes.Shift < c.Models.Primary.Classes {
			return fmt.Errorf("classes.shift %d overlaps the %d primary classes",
				c.Classes.Shift, c.Models.Primary.Classes)
		}
	}

	if c.Overlay.Enabled && c.Overlay.Factor <= 0 {
		return fmt.Errorf("overlay.factor must be positive, got %g", c.Overlay.Factor)
	}
	if c.Output.DisplayPatchSize <= 0 {
		return fmt.Errorf("output.displayPatchSize must be positive, got %d", c.Output.DisplayPatchSize)
	}

	table, err := visualization.ParseColorTable(c.Colors)
	if err != nil {
		return fmt.Errorf("colors: %w", err)
	}
	if !table.Covers(maxClass) {
		return fmt.Errorf("colors lists %d entries but class ids reach %d", len(table), maxClass)
	}
	return nil
}

func classID(name string, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%s must be in 0..255, got %d", name, v)
	}
	return nil
}
