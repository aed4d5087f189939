package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qpxlab/gammafit/spectral"
)

func TestLoadJSONAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{
  "finder_cutoff_kev": 50,
  "kon_width": 6,
  "kon_sigma_spectrum": 4,
  "roi_max_peaks": 20,
  "sum4_only": true,
  "gaussian_only": false,
  "lateral_slack": 0.25,
  "fitter_max_iter": 100
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if s.FinderCutoffKeV != 50 || s.KONWidth != 6 || s.KONSigmaSpectrum != 4 {
		t.Fatalf("finder fields mismatch: %+v", s)
	}
	if s.ROIMaxPeaks != 20 || !s.SUM4Only {
		t.Fatalf("roi fields mismatch: %+v", s)
	}
	if s.GaussianOnly || s.LateralSlack != 0.25 || s.FitterMaxIter != 100 {
		t.Fatalf("shape/iteration fields mismatch: %+v", s)
	}
	if !s.Overridden {
		t.Fatalf("expected Overridden to be set")
	}
}

func TestLoadJSONRejectsInvalidKONWidth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"kon_width": 1}`), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for kon_width < 2")
	}
}

func TestLoadJSONRejectsNegativeCutoff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"finder_cutoff_kev": -1}`), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for negative finder_cutoff_kev")
	}
}

func TestLoadJSONRejectsZeroROIMaxPeaks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"roi_max_peaks": 0}`), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for roi_max_peaks == 0")
	}
}

func TestApplyFileNilFileIsNoop(t *testing.T) {
	dst := spectral.NewDefaultFitSettings()
	before := dst
	if err := ApplyFile(&dst, nil); err != nil {
		t.Fatalf("ApplyFile(nil): %v", err)
	}
	if dst != before {
		t.Fatalf("expected no change applying a nil file")
	}
}
