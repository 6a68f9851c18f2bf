package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gielenor/launcher/src/pkg/models"
)

// ConsoleOnly disables the log file
const ConsoleOnly = "console"

// Init parses and sets the log level and routes output to stdout plus a
// rotated file under dataDir
func Init(cfg models.LogConfig, dataDir string) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("failed parsing log-level %s: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stdout
	if path := FilePath(cfg, dataDir); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(path),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetLevel(level)
	return nil
}

// FilePath returns the log file location, or "" when logging to the console only
func FilePath(cfg models.LogConfig, dataDir string) string {
	switch {
	case cfg.File == "" || cfg.File == ConsoleOnly:
		return ""
	case filepath.IsAbs(cfg.File):
		return cfg.File
	default:
		return filepath.Join(dataDir, "logs", cfg.File)
	}
}
