package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/stitchwork/internal/imagery"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
		"min_good_matches": 20,
		"fallback_mode": "vertical"
	}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	policy := cfg.MatchPolicy()
	if policy.MinGoodMatches != 20 {
		t.Errorf("MinGoodMatches = %d, want 20", policy.MinGoodMatches)
	}
	if policy.RatioThreshold != imagery.DefaultRatioThreshold {
		t.Errorf("RatioThreshold = %f, want the default %f", policy.RatioThreshold, imagery.DefaultRatioThreshold)
	}
	if cfg.GetFallbackMode() != imagery.FallbackVertical {
		t.Errorf("fallback = %v, want vertical", cfg.GetFallbackMode())
	}
	if cfg.GetDetector() != "binary" {
		t.Errorf("detector = %q, want default binary", cfg.GetDetector())
	}
}

func TestLoadTuningConfig_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad ratio", `{"ratio_threshold": 1.5}`},
		{"bad detector", `{"detector": "surf"}`},
		{"bad fallback", `{"fallback_mode": "diagonal"}`},
		{"bad matches", `{"min_good_matches": 0}`},
		{"bad confidence", `{"confidence_threshold": 2}`},
		{"not json", `fallback_mode: vertical`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "tuning.json", tc.body)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Error("expected a load error")
			}
		})
	}

	if _, err := LoadTuningConfig("/does/not/exist.json"); err == nil {
		t.Error("missing file must error")
	}
	if _, err := LoadTuningConfig(writeConfig(t, "tuning.yaml", "{}")); err == nil {
		t.Error("non-json extension must be rejected")
	}
}

func TestEmptyTuningConfig_Defaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	blend := cfg.BlendParams()
	if blend.ConfidenceThreshold != imagery.DefaultConfidenceThreshold {
		t.Errorf("ConfidenceThreshold = %f, want default", blend.ConfidenceThreshold)
	}
	if blend.MinOverlapPx != imagery.DefaultMinBlendOverlapPx {
		t.Errorf("MinOverlapPx = %d, want default", blend.MinOverlapPx)
	}
	overlap := cfg.OverlapParams()
	if overlap.SearchFraction != imagery.DefaultSearchFraction {
		t.Errorf("SearchFraction = %f, want default", overlap.SearchFraction)
	}
	det := cfg.DetectorParams()
	if det.MaxKeypoints != imagery.DefaultMaxKeypoints {
		t.Errorf("MaxKeypoints = %d, want default", det.MaxKeypoints)
	}
	if cfg.GetFallbackMode() != imagery.FallbackGrid {
		t.Errorf("default fallback = %v, want grid", cfg.GetFallbackMode())
	}
}
