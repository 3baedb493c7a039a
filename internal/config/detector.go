package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// DefaultConfigPath is the path to the canonical detector defaults file.
const DefaultConfigPath = "config/detector.defaults.json"

// maxFileSize bounds the size of a tuning file.
const maxFileSize = 1 * 1024 * 1024

// Fallbacks for the fields that are not detector parameters.
const (
	defaultOctaves       = 1
	defaultMaxKeypoints  = 500
	defaultHistogramBins = blob.DefaultHistogramBins
)

// DetectorConfig is a detector tuning file. Every field is optional; a nil
// field leaves the corresponding default in place, so partial files are safe.
type DetectorConfig struct {
	// Scale-space params
	CurrentSigma     *float64 `json:"current_sigma,omitempty"`
	InitialSigma     *float64 `json:"initial_sigma,omitempty"`
	DestinationSigma *float64 `json:"destination_sigma,omitempty"`
	ScalesPerOctave  *int     `json:"scales_per_octave,omitempty"`

	// Extremum search params
	WideNeighborTest *bool `json:"wide_neighbor_test,omitempty"`
	BorderSize       *int  `json:"border_size,omitempty"`
	NarrowThreshold  *int  `json:"narrow_threshold,omitempty"`
	WideThreshold    *int  `json:"wide_threshold,omitempty"`

	// Run params
	Workers       *int `json:"workers,omitempty"`
	Octaves       *int `json:"octaves,omitempty"`
	MaxKeypoints  *int `json:"max_keypoints,omitempty"` // 0 returns every keypoint
	HistogramBins *int `json:"histogram_bins,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultDetectorConfig returns a config with every field set to the
// values of blob.DefaultParams and the package fallbacks.
func DefaultDetectorConfig() *DetectorConfig {
	p := blob.DefaultParams()
	return &DetectorConfig{
		CurrentSigma:     ptrFloat64(p.CurrentSigma),
		InitialSigma:     ptrFloat64(p.InitialSigma),
		DestinationSigma: ptrFloat64(p.DestinationSigma),
		ScalesPerOctave:  ptrInt(p.ScalesPerOctave),
		WideNeighborTest: ptrBool(p.WideNeighborTest),
		BorderSize:       ptrInt(p.BorderSize),
		NarrowThreshold:  ptrInt(p.NarrowThreshold),
		WideThreshold:    ptrInt(p.WideThreshold),
		Workers:          ptrInt(p.Workers),
		Octaves:          ptrInt(defaultOctaves),
		MaxKeypoints:     ptrInt(defaultMaxKeypoints),
		HistogramBins:    ptrInt(defaultHistogramBins),
	}
}

// LoadDetectorConfig loads a DetectorConfig from a JSON file.
// The file must have a .json extension and be at most 1 MiB.
func LoadDetectorConfig(path string) (*DetectorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &DetectorConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *DetectorConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadDetectorConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. Detector parameters are checked
// together by applying them to the defaults, so a file that only moves
// initial_sigma above the default destination_sigma is rejected.
func (c *DetectorConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.Octaves != nil && *c.Octaves < 1 {
		return fmt.Errorf("octaves must be at least 1, got %d", *c.Octaves)
	}
	if c.MaxKeypoints != nil && *c.MaxKeypoints < 0 {
		return fmt.Errorf("max_keypoints must be non-negative, got %d", *c.MaxKeypoints)
	}
	if c.HistogramBins != nil && *c.HistogramBins < 2 {
		return fmt.Errorf("histogram_bins must be at least 2, got %d", *c.HistogramBins)
	}
	return c.Params().Validate()
}

// ApplyTo overwrites the fields of p that are set in c.
func (c *DetectorConfig) ApplyTo(p *blob.Params) {
	if c.CurrentSigma != nil {
		p.CurrentSigma = *c.CurrentSigma
	}
	if c.InitialSigma != nil {
		p.InitialSigma = *c.InitialSigma
	}
	if c.DestinationSigma != nil {
		p.DestinationSigma = *c.DestinationSigma
	}
	if c.ScalesPerOctave != nil {
		p.ScalesPerOctave = *c.ScalesPerOctave
	}
	if c.WideNeighborTest != nil {
		p.WideNeighborTest = *c.WideNeighborTest
	}
	if c.BorderSize != nil {
		p.BorderSize = *c.BorderSize
	}
	if c.NarrowThreshold != nil {
		p.NarrowThreshold = *c.NarrowThreshold
	}
	if c.WideThreshold != nil {
		p.WideThreshold = *c.WideThreshold
	}
	if c.Workers != nil {
		p.Workers = *c.Workers
	}
}

// Params returns blob.DefaultParams with the set fields applied.
func (c *DetectorConfig) Params() blob.Params {
	p := blob.DefaultParams()
	c.ApplyTo(&p)
	return p
}

// GetOctaves returns the octaves value or the default.
func (c *DetectorConfig) GetOctaves() int {
	if c.Octaves == nil {
		return defaultOctaves
	}
	return *c.Octaves
}

// GetMaxKeypoints returns the max_keypoints value or the default.
func (c *DetectorConfig) GetMaxKeypoints() int {
	if c.MaxKeypoints == nil {
		return defaultMaxKeypoints
	}
	return *c.MaxKeypoints
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *DetectorConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return defaultHistogramBins
	}
	return *c.HistogramBins
}
