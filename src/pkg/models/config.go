package models

import "time"

// Config represents the main configuration for the launcher
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Log        LogConfig        `yaml:"log"`
	UI         UIConfig         `yaml:"ui"`
	Network    NetworkConfig    `yaml:"network"`
	SelfUpdate SelfUpdateConfig `yaml:"self_update"`
	Client     ClientConfig     `yaml:"client"`
	Runtime    RuntimeConfig    `yaml:"runtime"`

	// Runtime-only switches, set from the environment or CLI flags
	DevMode         bool `yaml:"-"`
	ForceSelfUpdate bool `yaml:"-"`
	Offline         bool `yaml:"-"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // relative to data_dir, "console" disables the file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// UIConfig selects the UI collaborators that receive progress events
type UIConfig struct {
	Tray       bool `yaml:"tray"`
	BufferSize int  `yaml:"buffer_size"`
}

// NetworkConfig contains transport and release source settings
type NetworkConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxRedirects      int           `yaml:"max_redirects"`
	RateLimitAttempts int           `yaml:"rate_limit_attempts"`
	MaxRateLimitWait  time.Duration `yaml:"max_rate_limit_wait"`
	GitHubToken       string        `yaml:"github_token,omitempty"`
}

// SelfUpdateConfig contains launcher self-update settings
type SelfUpdateConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	AssetPrefix string `yaml:"asset_prefix"`
}

// ClientConfig contains client artifact settings
type ClientConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	AssetPrefix    string   `yaml:"asset_prefix"`
	AssetExtension string   `yaml:"asset_extension"`
	JavaArgs       []string `yaml:"java_args,omitempty"`
}

// RuntimeConfig contains Java runtime provisioning settings
type RuntimeConfig struct {
	BaseURL  string              `yaml:"base_url"`
	Archives map[Platform]string `yaml:"archives"`
}
