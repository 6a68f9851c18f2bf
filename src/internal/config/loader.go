package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gielenor/launcher/src/pkg/models"
)

const (
	// FileName is the config file looked up in the data directory
	FileName = "launcher.yaml"

	appDirName = "Gielenor"

	envDataDir         = "GIELENOR_DATA_DIR"
	envDev             = "GIELENOR_DEV"
	envForceSelfUpdate = "GIELENOR_FORCE_SELF_UPDATE"
	envGitHubToken     = "GITHUB_TOKEN"
)

// Default returns the configuration used when no file is present
func Default() *models.Config {
	cfg := &models.Config{
		SelfUpdate: models.SelfUpdateConfig{
			Enabled: true,
		},
		UI: models.UIConfig{
			Tray: true,
		},
	}
	setDefaults(cfg)
	return cfg
}

// DefaultDataDir returns the per-user data directory
func DefaultDataDir() string {
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "."+strings.ToLower(appDirName))
	}
	return filepath.Join(base, appDirName)
}

// LoadEnv loads a .env file from the working directory if one exists
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to load .env: %v", err)
	}
}

// LoadConfig loads configuration from a YAML file. An empty path reads
// <data_dir>/launcher.yaml when it exists and falls back to defaults.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(DefaultDataDir(), FileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Debugf("No config file at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)

	// Set defaults
	setDefaults(cfg)

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration after flags have been applied
func Validate(cfg *models.Config) error {
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnv overrides file values with environment variables
func applyEnv(cfg *models.Config) {
	if dir := os.Getenv(envDataDir); dir != "" {
		cfg.DataDir = dir
	}
	if token := os.Getenv(envGitHubToken); token != "" {
		cfg.Network.GitHubToken = token
	}
	cfg.DevMode = envBool(envDev)
	cfg.ForceSelfUpdate = envBool(envForceSelfUpdate)
}

func envBool(key string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", key, value, err)
		return false
	}
	return b
}

// setDefaults sets default values for configuration
func setDefaults(cfg *models.Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "launcher.log"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}

	if cfg.UI.BufferSize == 0 {
		cfg.UI.BufferSize = 64
	}

	// Network defaults
	if cfg.Network.Timeout == 0 {
		cfg.Network.Timeout = 15 * time.Second
	}
	if cfg.Network.MaxRedirects == 0 {
		cfg.Network.MaxRedirects = 10
	}
	if cfg.Network.RateLimitAttempts == 0 {
		cfg.Network.RateLimitAttempts = 3
	}
	if cfg.Network.MaxRateLimitWait == 0 {
		cfg.Network.MaxRateLimitWait = 60 * time.Second
	}

	// Self-update defaults
	if cfg.SelfUpdate.Endpoint == "" {
		cfg.SelfUpdate.Endpoint = "https://api.github.com/repos/Gielenor/launcher/releases/latest"
	}
	if cfg.SelfUpdate.AssetPrefix == "" {
		cfg.SelfUpdate.AssetPrefix = "GielenorLauncher_v"
	}

	// Client defaults
	if cfg.Client.Endpoint == "" {
		cfg.Client.Endpoint = "https://api.github.com/repos/Gielenor/client/releases/latest"
	}
	if cfg.Client.AssetPrefix == "" {
		cfg.Client.AssetPrefix = "Gielenor_v"
	}
	if cfg.Client.AssetExtension == "" {
		cfg.Client.AssetExtension = ".jar"
	}

	// Runtime defaults
	if cfg.Runtime.BaseURL == "" {
		cfg.Runtime.BaseURL = "https://github.com/Gielenor/java-bin/releases/latest/download"
	}
	if cfg.Runtime.Archives == nil {
		cfg.Runtime.Archives = make(map[models.Platform]string)
	}
	for p, name := range map[models.Platform]string{
		models.PlatformWindows: "win.rar",
		models.PlatformMac:     "mac.rar",
		models.PlatformLinux:   "linux.rar",
	} {
		if cfg.Runtime.Archives[p] == "" {
			cfg.Runtime.Archives[p] = name
		}
	}
}

// validate validates the configuration
func validate(cfg *models.Config) error {
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	if cfg.UI.BufferSize < 1 {
		return fmt.Errorf("ui buffer_size must be at least 1")
	}

	if cfg.Network.Timeout < 0 {
		return fmt.Errorf("network timeout must not be negative")
	}
	if cfg.Network.MaxRedirects < 1 {
		return fmt.Errorf("network max_redirects must be at least 1")
	}
	if cfg.Network.RateLimitAttempts < 1 {
		return fmt.Errorf("network rate_limit_attempts must be at least 1")
	}

	if err := validateURL("self_update endpoint", cfg.SelfUpdate.Endpoint); err != nil {
		return err
	}
	if err := validateURL("client endpoint", cfg.Client.Endpoint); err != nil {
		return err
	}
	if err := validateURL("runtime base_url", cfg.Runtime.BaseURL); err != nil {
		return err
	}

	if !strings.HasPrefix(cfg.Client.AssetExtension, ".") {
		return fmt.Errorf("client asset_extension must start with '.'")
	}

	for p, name := range cfg.Runtime.Archives {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("runtime archive for %s must be a plain file name", p)
		}
	}

	return nil
}

func validateURL(field, value string) error {
	if !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	return nil
}
