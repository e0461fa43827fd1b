// Package config loads the routing core's configuration file. The schema
// covers the layer triple selection, the pipeline stage chain, and the
// direction deriver tuning; partial configs are safe, omitted fields keep
// their defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cinvymoe/ai-system-sub001/internal/layers"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
)

// Config is the root of the configuration file.
type Config struct {
	Layers layers.Config `json:"layers"`

	// StationaryThresholdDeg is the heading delta below which consecutive
	// readings count as stationary.
	StationaryThresholdDeg *float64 `json:"stationary_threshold_deg,omitempty"`
}

const defaultStationaryThreshold = 3.0

// Default returns the configuration used when no file is given: replay
// collection off a fixtures file, the standard angle pipeline, SQLite
// storage.
func Default() *Config {
	return &Config{
		Layers: layers.Config{
			Collection: layers.CollectionConfig{
				Kind:             layers.CollectionReplay,
				FixturesPath:     "fixtures.txt",
				ReplayIntervalMs: 100,
			},
			Processing: layers.ProcessingConfig{
				Kind: layers.ProcessingStandard,
				Stages: []pipeline.StageConfig{
					{Name: "angle"},
					{Name: "smooth", Params: map[string]float64{"window": 5}},
					{Name: "deadband", Params: map[string]float64{"threshold": 1}},
				},
			},
			Storage: layers.StorageConfig{
				Kind: layers.StorageSQLite,
				Path: "sensor_events.db",
			},
		},
	}
}

// StationaryThreshold returns the configured threshold or its default.
func (c *Config) StationaryThreshold() float64 {
	if c.StationaryThresholdDeg != nil {
		return *c.StationaryThresholdDeg
	}
	return defaultStationaryThreshold
}

// Validate rejects values the layer factory would not surface clearly.
func (c *Config) Validate() error {
	if c.StationaryThresholdDeg != nil {
		v := *c.StationaryThresholdDeg
		if v < 0 || v > 180 {
			return fmt.Errorf("stationary_threshold_deg %v out of range [0, 180]", v)
		}
	}
	if c.Layers.Collection.Kind == "" {
		return fmt.Errorf("layers.collection.kind is required")
	}
	if c.Layers.Processing.Kind == "" {
		return fmt.Errorf("layers.processing.kind is required")
	}
	if c.Layers.Storage.Kind == "" {
		return fmt.Errorf("layers.storage.kind is required")
	}
	return nil
}

// Load reads a Config from a JSON file. The file is validated to ensure it
// has a .json extension and stays under the max file size. Fields omitted
// from the JSON keep the default-config values, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
