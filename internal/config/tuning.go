// Package config loads the tuning file that adjusts enhancement, detection
// and optics parameters without rebuilding the server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/zeeman-rings-mcp/internal/detection"
	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
	"github.com/ironsheep/zeeman-rings-mcp/internal/session"
	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

// DefaultSearchHalfSize is the candidate search half size used when a
// detection request does not give one.
const DefaultSearchHalfSize = 10

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds optional overrides. Nil fields keep their defaults, so
// partial files are safe.
type TuningConfig struct {
	// Scoring
	WeightDistance     *float64 `json:"weight_distance,omitempty"`
	WeightEdge         *float64 `json:"weight_edge,omitempty"`
	WeightCompleteness *float64 `json:"weight_completeness,omitempty"`
	WeightCentering    *float64 `json:"weight_centering,omitempty"`
	DistanceFalloff    *float64 `json:"distance_falloff,omitempty"`

	// Circle transform
	CannyHigh              *float64 `json:"canny_high,omitempty"`
	AccumulatorThreshold   *int     `json:"accumulator_threshold,omitempty"`
	MinDistFactor          *float64 `json:"min_dist_factor,omitempty"`
	MaxCirclesPerCandidate *int     `json:"max_circles_per_candidate,omitempty"`

	// Profile and search
	ProfileHalfWidth *float64 `json:"profile_half_width,omitempty"`
	AngleSamples     *int     `json:"angle_samples,omitempty"`
	SearchHalfSize   *int     `json:"search_half_size,omitempty"`
	Workers          *int     `json:"workers,omitempty"`

	// Enhancement
	BlurRadius    *float64 `json:"blur_radius,omitempty"`
	CLAHEClip     *float64 `json:"clahe_clip_limit,omitempty"`
	CLAHETileGrid *int     `json:"clahe_tile_grid,omitempty"`

	// Optics
	FocalLength     *float64 `json:"focal_length_m,omitempty"`
	RefractiveIndex *float64 `json:"refractive_index,omitempty"`
	WavelengthNM    *float64 `json:"wavelength_nm,omitempty"`
}

// EmptyTuningConfig returns a config with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must end
// in .json and the file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the set fields.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"weight_distance":     c.WeightDistance,
		"weight_edge":         c.WeightEdge,
		"weight_completeness": c.WeightCompleteness,
		"weight_centering":    c.WeightCentering,
		"distance_falloff":    c.DistanceFalloff,
		"min_dist_factor":     c.MinDistFactor,
		"blur_radius":         c.BlurRadius,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"canny_high":         c.CannyHigh,
		"profile_half_width": c.ProfileHalfWidth,
		"clahe_clip_limit":   c.CLAHEClip,
		"focal_length_m":     c.FocalLength,
		"refractive_index":   c.RefractiveIndex,
		"wavelength_nm":      c.WavelengthNM,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	for name, v := range map[string]*int{
		"accumulator_threshold":     c.AccumulatorThreshold,
		"max_circles_per_candidate": c.MaxCirclesPerCandidate,
		"angle_samples":             c.AngleSamples,
		"clahe_tile_grid":           c.CLAHETileGrid,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}

	if c.SearchHalfSize != nil && *c.SearchHalfSize < 0 {
		return fmt.Errorf("search_half_size must be non-negative, got %d", *c.SearchHalfSize)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// DetectOptions returns the detection defaults with overrides applied.
func (c *TuningConfig) DetectOptions() detection.DetectOptions {
	o := detection.DefaultDetectOptions()
	setFloat(&o.Scoring.Distance, c.WeightDistance)
	setFloat(&o.Scoring.Edge, c.WeightEdge)
	setFloat(&o.Scoring.Completeness, c.WeightCompleteness)
	setFloat(&o.Scoring.Centering, c.WeightCentering)
	setFloat(&o.Scoring.DistanceFalloff, c.DistanceFalloff)
	setFloat(&o.CannyHigh, c.CannyHigh)
	setInt(&o.AccumulatorThreshold, c.AccumulatorThreshold)
	setFloat(&o.MinDistFactor, c.MinDistFactor)
	setInt(&o.MaxCirclesPerCandidate, c.MaxCirclesPerCandidate)
	setFloat(&o.Profile.HalfWidth, c.ProfileHalfWidth)
	setInt(&o.Profile.AngleSamples, c.AngleSamples)
	setInt(&o.Workers, c.Workers)
	return o
}

// ProfileOptions returns the radial profile settings.
func (c *TuningConfig) ProfileOptions() detection.ProfileOptions {
	return c.DetectOptions().Profile
}

// EnhanceOptions returns the enhancement defaults with overrides applied.
func (c *TuningConfig) EnhanceOptions() imaging.EnhanceOptions {
	o := imaging.DefaultEnhanceOptions()
	setFloat(&o.BlurRadius, c.BlurRadius)
	setFloat(&o.ClipLimit, c.CLAHEClip)
	setInt(&o.TileGrid, c.CLAHETileGrid)
	return o
}

// Optics returns the lens and etalon parameters.
func (c *TuningConfig) Optics() zeeman.Optics {
	o := zeeman.DefaultOptics()
	setFloat(&o.FocalLength, c.FocalLength)
	setFloat(&o.RefractiveIndex, c.RefractiveIndex)
	return o
}

// GetWavelengthNM returns the default line wavelength.
func (c *TuningConfig) GetWavelengthNM() float64 {
	if c.WavelengthNM == nil {
		return session.DefaultWavelengthNM
	}
	return *c.WavelengthNM
}

// GetSearchHalfSize returns the default candidate search half size.
func (c *TuningConfig) GetSearchHalfSize() int {
	if c.SearchHalfSize == nil {
		return DefaultSearchHalfSize
	}
	return *c.SearchHalfSize
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
