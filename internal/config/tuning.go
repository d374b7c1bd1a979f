// Package config loads the JSON tuning file for the stitching
// pipeline. All fields are pointer-typed so a partial config merges
// over the built-in defaults: omitted fields simply keep their default
// values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/stitchwork/internal/imagery"
)

// TuningConfig is the root tuning document. The thresholds here are
// operating policy carried over from field use, not verified optima;
// treat them as knobs.
type TuningConfig struct {
	// Detector selection and limits
	Detector        *string  `json:"detector,omitempty"` // "binary" | "float"
	MaxKeypoints    *int     `json:"max_keypoints,omitempty"`
	CornerThreshold *float64 `json:"corner_threshold,omitempty"`
	MaxDetectSide   *int     `json:"max_detect_side,omitempty"`

	// Pair matching policy
	RatioThreshold *float64 `json:"ratio_threshold,omitempty"`
	MinGoodMatches *int     `json:"min_good_matches,omitempty"`

	// Overlap search
	SearchFraction   *float64 `json:"search_fraction,omitempty"`
	TemplateFraction *float64 `json:"template_fraction,omitempty"`
	TemplateCapPx    *int     `json:"template_cap_px,omitempty"`

	// Blending policy
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	MinBlendOverlapPx   *int     `json:"min_blend_overlap_px,omitempty"`

	// Orchestration
	FallbackMode *string `json:"fallback_mode,omitempty"` // vertical | horizontal | grid | none
}

// EmptyTuningConfig returns a TuningConfig with all fields unset, so
// every Get* accessor reports its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads and validates a tuning file. Partial configs
// are safe: omitted fields retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
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

// Validate checks value ranges for every field that is set.
func (c *TuningConfig) Validate() error {
	if c.Detector != nil {
		if *c.Detector != "binary" && *c.Detector != "float" {
			return fmt.Errorf("detector must be \"binary\" or \"float\", got %q", *c.Detector)
		}
	}
	if c.RatioThreshold != nil {
		if *c.RatioThreshold <= 0 || *c.RatioThreshold >= 1 {
			return fmt.Errorf("ratio_threshold must be in (0, 1), got %f", *c.RatioThreshold)
		}
	}
	if c.MinGoodMatches != nil && *c.MinGoodMatches < 1 {
		return fmt.Errorf("min_good_matches must be positive, got %d", *c.MinGoodMatches)
	}
	if c.SearchFraction != nil {
		if *c.SearchFraction <= 0 || *c.SearchFraction > 1 {
			return fmt.Errorf("search_fraction must be in (0, 1], got %f", *c.SearchFraction)
		}
	}
	if c.TemplateFraction != nil {
		if *c.TemplateFraction <= 0 || *c.TemplateFraction > 1 {
			return fmt.Errorf("template_fraction must be in (0, 1], got %f", *c.TemplateFraction)
		}
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be in [0, 1], got %f", *c.ConfidenceThreshold)
		}
	}
	if c.MinBlendOverlapPx != nil && *c.MinBlendOverlapPx < 0 {
		return fmt.Errorf("min_blend_overlap_px must be non-negative, got %d", *c.MinBlendOverlapPx)
	}
	if c.FallbackMode != nil {
		if _, err := imagery.ParseFallbackMode(*c.FallbackMode); err != nil {
			return fmt.Errorf("invalid fallback_mode: %w", err)
		}
	}
	return nil
}

// GetDetector returns the detector kind or the default ("binary").
func (c *TuningConfig) GetDetector() string {
	if c.Detector == nil {
		return "binary"
	}
	return *c.Detector
}

// GetFallbackMode returns the parsed fallback mode or the default
// (grid). Validate has already rejected unknown strings.
func (c *TuningConfig) GetFallbackMode() imagery.FallbackMode {
	if c.FallbackMode == nil {
		return imagery.FallbackGrid
	}
	mode, err := imagery.ParseFallbackMode(*c.FallbackMode)
	if err != nil {
		return imagery.FallbackGrid
	}
	return mode
}

// DetectorParams assembles detector parameters from the config,
// falling back to package defaults for unset fields.
func (c *TuningConfig) DetectorParams() imagery.DetectorParams {
	p := imagery.DefaultDetectorParams()
	if c.MaxKeypoints != nil {
		p.MaxKeypoints = *c.MaxKeypoints
	}
	if c.CornerThreshold != nil {
		p.CornerThreshold = *c.CornerThreshold
	}
	if c.MaxDetectSide != nil {
		p.MaxDetectSide = *c.MaxDetectSide
	}
	return p
}

// MatchPolicy assembles the pair-matching policy from the config.
func (c *TuningConfig) MatchPolicy() imagery.MatchPolicy {
	p := imagery.DefaultMatchPolicy()
	if c.RatioThreshold != nil {
		p.RatioThreshold = *c.RatioThreshold
	}
	if c.MinGoodMatches != nil {
		p.MinGoodMatches = *c.MinGoodMatches
	}
	return p
}

// OverlapParams assembles the overlap-search parameters from the config.
func (c *TuningConfig) OverlapParams() imagery.OverlapParams {
	p := imagery.DefaultOverlapParams()
	if c.SearchFraction != nil {
		p.SearchFraction = *c.SearchFraction
	}
	if c.TemplateFraction != nil {
		p.TemplateFraction = *c.TemplateFraction
	}
	if c.TemplateCapPx != nil {
		p.TemplateCapPx = *c.TemplateCapPx
	}
	return p
}

// BlendParams assembles the blend policy from the config.
func (c *TuningConfig) BlendParams() imagery.BlendParams {
	p := imagery.DefaultBlendParams()
	p.Overlap = c.OverlapParams()
	if c.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *c.ConfidenceThreshold
	}
	if c.MinBlendOverlapPx != nil {
		p.MinOverlapPx = *c.MinBlendOverlapPx
	}
	return p
}
