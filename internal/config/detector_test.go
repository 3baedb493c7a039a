package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultDetectorConfig(t *testing.T) {
	cfg := DefaultDetectorConfig()

	if diff := cmp.Diff(blob.DefaultParams(), cfg.Params()); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetOctaves() != 1 {
		t.Errorf("GetOctaves() = %d, want 1", cfg.GetOctaves())
	}
	if cfg.GetMaxKeypoints() != 500 {
		t.Errorf("GetMaxKeypoints() = %d, want 500", cfg.GetMaxKeypoints())
	}
	if cfg.GetHistogramBins() != blob.DefaultHistogramBins {
		t.Errorf("GetHistogramBins() = %d, want %d", cfg.GetHistogramBins(), blob.DefaultHistogramBins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultDetectorConfig(), fromFile); diff != "" {
		t.Errorf("%s out of sync with DefaultDetectorConfig (-code +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadDetectorConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "initial_sigma": 1.0,
  "destination_sigma": 4.0,
  "scales_per_octave": 4,
  "wide_neighbor_test": false,
  "octaves": 3
}`)

	cfg, err := LoadDetectorConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := blob.DefaultParams()
	want.InitialSigma = 1.0
	want.DestinationSigma = 4.0
	want.ScalesPerOctave = 4
	want.WideNeighborTest = false
	if diff := cmp.Diff(want, cfg.Params()); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetOctaves() != 3 {
		t.Errorf("GetOctaves() = %d, want 3", cfg.GetOctaves())
	}
	// Omitted fields fall back.
	if cfg.MaxKeypoints != nil || cfg.GetMaxKeypoints() != 500 {
		t.Errorf("MaxKeypoints = %v, want unset with fallback 500", cfg.MaxKeypoints)
	}
}

func TestApplyToKeepsUnsetFields(t *testing.T) {
	p := blob.DefaultParams()
	p.BorderSize = 9
	p.Workers = 3

	cfg := &DetectorConfig{Workers: ptrInt(0), DestinationSigma: ptrFloat64(16)}
	cfg.ApplyTo(&p)

	if p.BorderSize != 9 {
		t.Errorf("BorderSize = %d, want 9", p.BorderSize)
	}
	if p.Workers != 0 {
		t.Errorf("Workers = %d, want 0", p.Workers)
	}
	if p.DestinationSigma != 16 {
		t.Errorf("DestinationSigma = %v, want 16", p.DestinationSigma)
	}
}

func TestLoadDetectorConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "tuning.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"octaves": }`, "parse config JSON"},
		{"zero octaves", "o.json", `{"octaves": 0}`, "octaves"},
		{"negative workers", "w.json", `{"workers": -2}`, "workers"},
		{"one bin", "b.json", `{"histogram_bins": 1}`, "histogram_bins"},
		{"inverted sigmas", "s.json", `{"initial_sigma": 10}`, "destination_sigma"},
		{"zero scales", "z.json", `{"scales_per_octave": 0}`, "scales_per_octave"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDetectorConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDetectorConfig_ParamErrorsWrap(t *testing.T) {
	_, err := LoadDetectorConfig(writeConfig(t, "c.json", `{"border_size": -1}`))
	if !errors.Is(err, blob.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadDetectorConfig_TooLarge(t *testing.T) {
	body := `{"octaves": 1, "pad": "` + strings.Repeat("x", maxFileSize) + `"}`
	_, err := LoadDetectorConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLoadDetectorConfig_Missing(t *testing.T) {
	_, err := LoadDetectorConfig(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
