package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gielenor/launcher/src/pkg/models"
)

func TestFilePath(t *testing.T) {
	data := filepath.Join("home", "gielenor")
	abs := filepath.Join(t.TempDir(), "launcher.log")

	assert.Empty(t, FilePath(models.LogConfig{File: ConsoleOnly}, data))
	assert.Empty(t, FilePath(models.LogConfig{}, data))
	assert.Equal(t, abs, FilePath(models.LogConfig{File: abs}, data))
	assert.Equal(t, filepath.Join(data, "logs", "launcher.log"), FilePath(models.LogConfig{File: "launcher.log"}, data))
}

func TestInit(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
	}()

	dir := t.TempDir()
	require.NoError(t, Init(models.LogConfig{Level: "debug", File: "launcher.log", MaxSizeMB: 1, MaxBackups: 1}, dir))
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	log.Info("log file check")
	assert.FileExists(t, filepath.Join(dir, "logs", "launcher.log"))

	assert.Error(t, Init(models.LogConfig{Level: "loud"}, dir))
}
