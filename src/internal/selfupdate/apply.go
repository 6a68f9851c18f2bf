package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inconshreveable/go-update"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/process"
	"github.com/gielenor/launcher/src/pkg/models"
)

// Applier replaces the running launcher executable with a staged build and
// starts it detached
type Applier struct {
	// TargetPath is the executable to replace; empty means os.Executable
	TargetPath string
	// Args are passed to the restarted launcher
	Args []string
	// BeforeRestart runs after the binary is swapped and before the new
	// process starts, e.g. to release the instance lock
	BeforeRestart func() error

	spawn func(process.Spec) (*models.ProcessInstance, error)
}

// NewApplier creates an applier that restarts the launcher with args
func NewApplier(args []string, beforeRestart func() error) *Applier {
	return &Applier{
		Args:          args,
		BeforeRestart: beforeRestart,
		spawn:         process.Spawn,
	}
}

// Apply installs the staged artifact over the running executable and
// restarts it. On success the caller is expected to exit.
func (a *Applier) Apply(ctx context.Context, artifact models.Artifact) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrCancelled, err)
	}

	target, err := a.target()
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"domain":  models.DomainLauncher,
		"version": artifact.Version,
	})

	staged, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to open staged launcher: %w", err)
	}

	err = update.Apply(staged, update.Options{TargetPath: target})
	staged.Close()
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			logger.Errorf("Failed to roll back launcher update: %v", rerr)
		}
		return fmt.Errorf("failed to apply launcher update: %w", err)
	}
	logger.Infof("Replaced %s with launcher %s", target, artifact.Version)

	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to remove staged launcher: %v", err)
	}

	if a.BeforeRestart != nil {
		if err := a.BeforeRestart(); err != nil {
			logger.Warnf("Pre-restart hook failed: %v", err)
		}
	}

	spawn := a.spawn
	if spawn == nil {
		spawn = process.Spawn
	}
	if _, err := spawn(process.Spec{
		Domain:  models.DomainLauncher,
		Binary:  target,
		Args:    a.Args,
		WorkDir: filepath.Dir(target),
	}); err != nil {
		return fmt.Errorf("failed to restart launcher: %w", err)
	}

	return nil
}

func (a *Applier) target() (string, error) {
	if a.TargetPath != "" {
		return a.TargetPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate launcher executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
