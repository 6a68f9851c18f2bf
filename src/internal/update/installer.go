package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/artifact"
	"github.com/gielenor/launcher/src/pkg/models"
)

// DirectInstaller handles artifacts that are used as downloaded: the download
// lands on its canonical path in the store and only needs validating
type DirectInstaller struct {
	Store *artifact.Store
}

// Stage returns the canonical path of the release version
func (d *DirectInstaller) Stage(release *models.ReleaseDescriptor) string {
	return d.Store.PathFor(release.Version)
}

// Install checks the downloaded file. An invalid file is removed so it never
// becomes the local best.
func (d *DirectInstaller) Install(_ context.Context, staged string, _ *models.ReleaseDescriptor) (string, error) {
	if d.Store.IsValidArtifact(staged) {
		return staged, nil
	}

	if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to remove invalid artifact %s: %v", staged, err)
	}
	return "", fmt.Errorf("%w: %s is missing or empty", models.ErrIntegrity, filepath.Base(staged))
}
