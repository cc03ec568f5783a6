package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReloadDefaultsAndOverrides(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "walkthrough.yaml")
	content := []byte(`
log_format: json
paths:
  staging_dir: /tmp/docs/staging
automation:
  scale_factor: 1.0
  element:
    driver: cdp
review:
  archive_format: bzip2
`)
	if err := os.WriteFile(cfgFile, content, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CI", "true")

	if err := Reload(cfgFile); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if !ConfigLoaded || ConfigFile != cfgFile {
		t.Errorf("expected config file %s to be loaded, got %q (%v)", cfgFile, ConfigFile, ConfigLoaded)
	}
	if Instance.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", Instance.LogFormat)
	}
	if Instance.Paths.StagingDir != "/tmp/docs/staging" {
		t.Errorf("StagingDir = %q", Instance.Paths.StagingDir)
	}
	if Instance.Automation.ScaleFactor != 1.0 {
		t.Errorf("ScaleFactor = %v, want 1.0", Instance.Automation.ScaleFactor)
	}
	if Instance.Automation.Element.Driver != "cdp" {
		t.Errorf("Element.Driver = %q, want cdp", Instance.Automation.Element.Driver)
	}
	if Instance.Review.ArchiveFormat != "bzip2" {
		t.Errorf("ArchiveFormat = %q, want bzip2", Instance.Review.ArchiveFormat)
	}

	// Untouched keys keep their defaults
	if Instance.Automation.WaitBefore != 0.5 {
		t.Errorf("WaitBefore = %v, want default 0.5", Instance.Automation.WaitBefore)
	}
	if Instance.Documentation.ScreenshotMaxHeight != 600 {
		t.Errorf("ScreenshotMaxHeight = %d, want 600", Instance.Documentation.ScreenshotMaxHeight)
	}
	if Instance.Paths.OutputDir != "output" {
		t.Errorf("OutputDir = %q, want output", Instance.Paths.OutputDir)
	}
}
