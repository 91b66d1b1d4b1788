package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Browser.TimeoutSeconds != 30 {
			t.Errorf("Expected default timeout 30, got %d", cfg.Browser.TimeoutSeconds)
		}
		if cfg.Workflow.PortalURL == "" {
			t.Error("Expected default portal URL to be set")
		}
		if cfg.Path() != configPath {
			t.Errorf("Expected path %s, got %s", configPath, cfg.Path())
		}
	})

	t.Run("loads existing config file", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")

		content := `browser:
  headless: true
  timeout_seconds: 45
  download_dir: /tmp/downloads
workflow:
  supplier: "KK10608 - COEMI S.R.L."
  date_from: "01.01.2025"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if !cfg.Browser.Headless {
			t.Error("Expected headless true")
		}
		if cfg.Browser.TimeoutSeconds != 45 {
			t.Errorf("Expected timeout 45, got %d", cfg.Browser.TimeoutSeconds)
		}
		if cfg.Workflow.Supplier != "KK10608 - COEMI S.R.L." {
			t.Errorf("Unexpected supplier: %q", cfg.Workflow.Supplier)
		}
		// Unset fields keep their defaults.
		if cfg.Workflow.PortalURL == "" {
			t.Error("Expected default portal URL for unset field")
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")

		if err := os.WriteFile(configPath, []byte("browser: [not a map"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		if _, err := Load(configPath); err == nil {
			t.Error("Expected error for malformed config")
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Browser.Headless = true
	cfg.Workflow.Contract = "C-4400123"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if !reloaded.Browser.Headless {
		t.Error("Headless flag not persisted")
	}
	if reloaded.Workflow.Contract != "C-4400123" {
		t.Errorf("Contract not persisted, got %q", reloaded.Workflow.Contract)
	}
}

func TestResolveDownloadDir(t *testing.T) {
	tempDir := t.TempDir()
	cfg := Default()
	cfg.Browser.DownloadDir = filepath.Join(tempDir, "dl")

	dir, err := cfg.ResolveDownloadDir()
	if err != nil {
		t.Fatalf("ResolveDownloadDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected download dir to exist: %v", err)
	}
}
