package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gielenor/launcher/src/pkg/models"
)

// InstallDir is an archive-derived artifact: a directory that is valid when
// a known entry point exists inside it
type InstallDir struct {
	domain     models.Domain
	dir        string
	entryPoint string
}

// NewInstallDir creates an install directory whose validity is defined by entryPoint,
// a path relative to dir
func NewInstallDir(domain models.Domain, dir, entryPoint string) *InstallDir {
	return &InstallDir{
		domain:     domain,
		dir:        dir,
		entryPoint: entryPoint,
	}
}

// Path returns the install directory
func (d *InstallDir) Path() string {
	return d.dir
}

// Parent creates the directory holding the install directory and returns it
func (d *InstallDir) Parent() (string, error) {
	parent := filepath.Dir(d.dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", d.domain, err)
	}
	return parent, nil
}

// EntryPoint returns the absolute path of the entry point
func (d *InstallDir) EntryPoint() string {
	return filepath.Join(d.dir, d.entryPoint)
}

// IsValidArtifact checks that the entry point exists inside dir
func (d *InstallDir) IsValidArtifact(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, d.entryPoint))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// BestLocal returns the install directory when it holds a valid installation
func (d *InstallDir) BestLocal() (models.Artifact, bool) {
	if _, err := d.Parent(); err != nil {
		return models.Artifact{}, false
	}
	if !d.IsValidArtifact(d.dir) {
		return models.Artifact{}, false
	}
	return models.Artifact{Domain: d.domain, Path: d.dir}, true
}
