package config

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/banshee-data/gla14/internal/fsutil"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/gla14/quality"
)

// DefaultConfigPath is the path to the canonical quality defaults file.
const DefaultConfigPath = "config/quality.defaults.json"

// QualityConfig overrides the quality thresholds and extraction settings.
// Every field is optional; an omitted field keeps the default of the layout
// being decoded, so the SNR floor still differs between layouts unless
// snr_min is set.
type QualityConfig struct {
	Layout *string `json:"layout,omitempty"` // "legacy" or "r33"

	SNRMin        *int64 `json:"snr_min,omitempty"`
	GainMax       *int   `json:"gain_max,omitempty"`
	LandVarMax    *int   `json:"land_var_max,omitempty"`
	SaturationMax *int   `json:"saturation_max,omitempty"`
	CloudMin      *int   `json:"cloud_min,omitempty"`

	Workers *int `json:"workers,omitempty"` // 0 decodes sequentially
}

func ptrInt(v int) *int       { return &v }
func ptrInt64(v int64) *int64 { return &v }

// EmptyQualityConfig returns a QualityConfig with all fields nil.
func EmptyQualityConfig() *QualityConfig {
	return &QualityConfig{}
}

// LoadQualityConfig loads a QualityConfig from a JSON file on disk.
func LoadQualityConfig(path string) (*QualityConfig, error) {
	return LoadQualityConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadQualityConfigFS loads a QualityConfig from a JSON file in fsys.
// The file must have a .json extension and be under 1MB.
func LoadQualityConfigFS(fsys fsutil.FileSystem, path string) (*QualityConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyQualityConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// a parent. Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *QualityConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadQualityConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func checkRange(name string, v *int, max int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > max {
		return fmt.Errorf("%s must be between 0 and %d, got %d", name, max, *v)
	}
	return nil
}

// Validate checks that every set value fits its stored field.
func (c *QualityConfig) Validate() error {
	if c.Layout != nil {
		if _, err := layout.ParseVersion(*c.Layout); err != nil {
			return err
		}
	}
	if c.SNRMin != nil && *c.SNRMin < 0 {
		return fmt.Errorf("snr_min must be non-negative, got %d", *c.SNRMin)
	}
	if err := checkRange("gain_max", c.GainMax, math.MaxUint16); err != nil {
		return err
	}
	if err := checkRange("land_var_max", c.LandVarMax, math.MaxUint16); err != nil {
		return err
	}
	// saturation is compared against a 4-bit nibble
	if err := checkRange("saturation_max", c.SaturationMax, 15); err != nil {
		return err
	}
	if err := checkRange("cloud_min", c.CloudMin, math.MaxUint8); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetLayout returns the configured layout, or Release33.
func (c *QualityConfig) GetLayout() layout.Version {
	if c.Layout == nil {
		return layout.Release33
	}
	v, err := layout.ParseVersion(*c.Layout)
	if err != nil {
		return layout.Release33
	}
	return v
}

// GetWorkers returns the configured worker count, or 0.
func (c *QualityConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// Thresholds returns the defaults of layout v with the configured
// overrides applied.
func (c *QualityConfig) Thresholds(v layout.Version) quality.Thresholds {
	t := quality.DefaultThresholds(v)
	if c.SNRMin != nil {
		t.SNRMin = *c.SNRMin
	}
	if c.GainMax != nil {
		t.GainMax = uint16(*c.GainMax)
	}
	if c.LandVarMax != nil {
		t.LandFitMax = uint16(*c.LandVarMax)
	}
	if c.SaturationMax != nil {
		t.SaturationMax = uint8(*c.SaturationMax)
	}
	if c.CloudMin != nil {
		t.CloudMin = uint8(*c.CloudMin)
	}
	return t
}
