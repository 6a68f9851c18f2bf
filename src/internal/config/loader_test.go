package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gielenor/launcher/src/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(envDataDir, dataDir)
	t.Setenv(envGitHubToken, "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.True(t, cfg.SelfUpdate.Enabled)
	assert.True(t, cfg.UI.Tray)
	assert.Equal(t, 15*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 10, cfg.Network.MaxRedirects)
	assert.Equal(t, 3, cfg.Network.RateLimitAttempts)
	assert.Equal(t, 60*time.Second, cfg.Network.MaxRateLimitWait)
	assert.Equal(t, "Gielenor_v", cfg.Client.AssetPrefix)
	assert.Equal(t, ".jar", cfg.Client.AssetExtension)
	assert.Equal(t, "GielenorLauncher_v", cfg.SelfUpdate.AssetPrefix)
	assert.Equal(t, "win.rar", cfg.Runtime.Archives[models.PlatformWindows])
	assert.Equal(t, "mac.rar", cfg.Runtime.Archives[models.PlatformMac])
	assert.Equal(t, "linux.rar", cfg.Runtime.Archives[models.PlatformLinux])
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(envDataDir, "")
	t.Setenv(envGitHubToken, "")
	path := writeConfig(t, `
data_dir: /srv/gielenor
log:
  level: debug
self_update:
  enabled: false
network:
  timeout: 30s
  rate_limit_attempts: 5
client:
  endpoint: https://example.com/client/latest
  java_args: ["-Xmx2G"]
runtime:
  archives:
    linux: linux.tar.gz
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/gielenor", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.SelfUpdate.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 5, cfg.Network.RateLimitAttempts)
	assert.Equal(t, "https://example.com/client/latest", cfg.Client.Endpoint)
	assert.Equal(t, []string{"-Xmx2G"}, cfg.Client.JavaArgs)
	assert.Equal(t, "linux.tar.gz", cfg.Runtime.Archives[models.PlatformLinux])
	assert.Equal(t, "win.rar", cfg.Runtime.Archives[models.PlatformWindows])
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(envDataDir, dataDir)
	t.Setenv(envGitHubToken, "ghp_test")
	t.Setenv(envDev, "1")
	t.Setenv(envForceSelfUpdate, "true")
	path := writeConfig(t, "data_dir: /ignored\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "ghp_test", cfg.Network.GitHubToken)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.ForceSelfUpdate)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv(envDataDir, t.TempDir())

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "log: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log level")

	_, err = LoadConfig(writeConfig(t, "client:\n  endpoint: ftp://example.com\n"))
	assert.ErrorContains(t, err, "client endpoint")

	_, err = LoadConfig(writeConfig(t, "runtime:\n  archives:\n    linux: ../linux.rar\n"))
	assert.ErrorContains(t, err, "plain file name")
}

func TestEnvBool(t *testing.T) {
	t.Setenv(envDev, "yes")
	assert.False(t, envBool(envDev))

	t.Setenv(envDev, " 1 ")
	assert.True(t, envBool(envDev))

	os.Unsetenv(envDev)
	assert.False(t, envBool(envDev))
}
