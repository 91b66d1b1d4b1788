package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// BrowserSection holds browser and session settings.
type BrowserSection struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool `yaml:"headless"`

	// TimeoutSeconds is the default timeout for page operations.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// DownloadDir is where triggered downloads land. Empty means the
	// user's Downloads directory.
	DownloadDir string `yaml:"download_dir"`

	// ProfileDir is the persistent browser profile/cache directory.
	// Exclusive per machine; empty means ~/.isabts/chrome_profile.
	ProfileDir string `yaml:"profile_dir"`
}

// WorkflowSection holds parameters shared by the workflow executors.
type WorkflowSection struct {
	// PortalURL is the entry point of the supplier portal.
	PortalURL string `yaml:"portal_url"`

	// Supplier is the supplier filter, e.g. "KK10608 - COEMI S.R.L.".
	Supplier string `yaml:"supplier"`

	// DateFrom and DateTo bound report queries, dd.mm.yyyy.
	DateFrom string `yaml:"date_from"`
	DateTo   string `yaml:"date_to"`

	// Contract is the default contract reference for detail extraction.
	Contract string `yaml:"contract"`
}

// Config is the full configuration surface of the automation framework.
type Config struct {
	Browser  BrowserSection  `yaml:"browser"`
	Workflow WorkflowSection `yaml:"workflow"`

	mu   sync.RWMutex
	path string
}

const defaultPortalURL = "https://portalefornitori.isab.com/Ui/"

// Default returns a configuration with sensible defaults applied.
func Default() *Config {
	return &Config{
		Browser: BrowserSection{
			Headless:       false,
			TimeoutSeconds: 30,
		},
		Workflow: WorkflowSection{
			PortalURL: defaultPortalURL,
			DateFrom:  "01.01." + fmt.Sprint(time.Now().Year()),
		},
	}
}

// DefaultPath returns ~/.isabts/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".isabts", "config.yaml"), nil
}

// Load reads the configuration from path. A missing file yields the
// defaults rather than an error, matching first-run behavior. If path is
// empty the default path is used.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.TimeoutSeconds <= 0 {
		c.Browser.TimeoutSeconds = 30
	}
	if c.Workflow.PortalURL == "" {
		c.Workflow.PortalURL = defaultPortalURL
	}
}

// Save writes the configuration back to its source path, creating the
// parent directory when needed.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		var err error
		if c.path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", c.path, err)
	}
	return nil
}

// Path returns the file backing this configuration.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Timeout returns the operation timeout as a duration.
func (c *Config) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

// ResolveDownloadDir returns the configured download directory,
// defaulting to ~/Downloads, and ensures it exists.
func (c *Config) ResolveDownloadDir() (string, error) {
	c.mu.RLock()
	dir := c.Browser.DownloadDir
	c.mu.RUnlock()

	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(homeDir, "Downloads")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	return dir, nil
}

// ResolveProfileDir returns the persistent profile directory, defaulting
// to ~/.isabts/chrome_profile.
func (c *Config) ResolveProfileDir() (string, error) {
	c.mu.RLock()
	dir := c.Browser.ProfileDir
	c.mu.RUnlock()

	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".isabts", "chrome_profile")
	}
	return dir, nil
}
