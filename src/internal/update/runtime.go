package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/archive"
	"github.com/gielenor/launcher/src/internal/artifact"
	"github.com/gielenor/launcher/src/internal/ui"
	"github.com/gielenor/launcher/src/pkg/models"
)

// PlatformDirName returns the runtime subdirectory of a platform
func PlatformDirName(p models.Platform) string {
	switch p {
	case models.PlatformWindows:
		return "win"
	case models.PlatformMac:
		return "mac"
	default:
		return "linux"
	}
}

// RuntimeInstallDir returns <dataDir>/runtime/<platform> with its java entry point
func RuntimeInstallDir(dataDir string, p models.Platform) *artifact.InstallDir {
	entry := filepath.Join("bin", "java")
	if p == models.PlatformWindows {
		entry += ".exe"
	}
	dir := filepath.Join(dataDir, "runtime", PlatformDirName(p))
	return artifact.NewInstallDir(models.DomainRuntime, dir, entry)
}

// StaticResolver serves a fixed release without any network call
type StaticResolver struct {
	Version string
	Assets  map[models.Platform]string
}

func (s *StaticResolver) ResolveLatest(ctx context.Context, domain models.Domain, _ models.RetryNotify) (*models.ReleaseDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCancelled, err)
	}

	assets := make(map[models.Platform]string, len(s.Assets))
	for p, url := range s.Assets {
		assets[p] = url
	}
	return &models.ReleaseDescriptor{
		Domain:  domain,
		Tag:     "latest",
		Version: s.Version,
		Assets:  assets,
	}, nil
}

// ArchiveInstaller extracts a downloaded archive into an install directory
type ArchiveInstaller struct {
	Dir     *artifact.InstallDir
	Archive string
	GOOS    string
}

// Stage returns the archive path next to the install directory
func (a *ArchiveInstaller) Stage(_ *models.ReleaseDescriptor) string {
	return filepath.Join(filepath.Dir(a.Dir.Path()), a.Archive)
}

// Install replaces the install directory with the archive contents and checks
// the entry point. The archive is removed afterwards.
func (a *ArchiveInstaller) Install(ctx context.Context, staged string, _ *models.ReleaseDescriptor) (string, error) {
	defer func() {
		if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Failed to remove archive %s: %v", staged, err)
		}
	}()

	format, err := archive.Detect(staged)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrIntegrity, err)
	}
	if format == archive.FormatUnknown {
		return "", fmt.Errorf("%w: %s is not a supported archive", models.ErrIntegrity, filepath.Base(staged))
	}

	dir := a.Dir.Path()
	scratch := filepath.Join(filepath.Dir(dir), ".extract-"+uuid.New().String())
	defer os.RemoveAll(scratch)

	if err := archive.Extract(ctx, staged, scratch); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", models.ErrCancelled, err)
		}
		return "", fmt.Errorf("%w: %w", models.ErrIntegrity, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.Rename(contentRoot(scratch, filepath.Base(dir)), dir); err != nil {
		return "", fmt.Errorf("failed to move runtime into place: %w", err)
	}

	if !a.Dir.IsValidArtifact(dir) {
		log.Infof("Entry point missing in %s, checking for nested folder", dir)
		if err := flattenNested(dir); err != nil {
			log.Warnf("Failed to flatten nested runtime: %v", err)
		}
	}
	if !a.Dir.IsValidArtifact(dir) {
		return "", fmt.Errorf("%w: %s not found after extraction", models.ErrIntegrity, a.Dir.EntryPoint())
	}

	if a.GOOS != "windows" {
		if err := os.Chmod(a.Dir.EntryPoint(), 0755); err != nil {
			return "", fmt.Errorf("failed to make %s executable: %w", a.Dir.EntryPoint(), err)
		}
	}
	return dir, nil
}

// contentRoot returns the single self-named top-level folder of an extraction,
// or the extraction directory itself
func contentRoot(scratch, name string) string {
	entries, err := os.ReadDir(scratch)
	if err != nil || len(entries) != 1 {
		return scratch
	}
	if entries[0].IsDir() && entries[0].Name() == name {
		return filepath.Join(scratch, name)
	}
	return scratch
}

// flattenNested hoists the contents of dir/<base(dir)> up one level
func flattenNested(dir string) error {
	nested := filepath.Join(dir, filepath.Base(dir))
	info, err := os.Stat(nested)
	if err != nil || !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(nested)
	if err != nil {
		return fmt.Errorf("failed to read nested folder: %w", err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if entry.Name() == filepath.Base(dir) {
			result = multierror.Append(result, fmt.Errorf("cannot hoist %s onto its parent", entry.Name()))
			continue
		}
		if err := os.Rename(filepath.Join(nested, entry.Name()), filepath.Join(dir, entry.Name())); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result.ErrorOrNil() != nil {
		return result.ErrorOrNil()
	}
	return os.RemoveAll(nested)
}

// NewRuntimePipeline builds the provision-once pipeline for the Java runtime
func NewRuntimePipeline(dir *artifact.InstallDir, cfg models.RuntimeConfig, platform models.Platform, goos string, downloader Downloader, sink ui.Sink) *Pipeline {
	archiveName := cfg.Archives[platform]
	assets := make(map[models.Platform]string)
	if archiveName != "" {
		assets[platform] = cfg.BaseURL + "/" + archiveName
	}

	return &Pipeline{
		Domain:        models.DomainRuntime,
		Platform:      platform,
		Labels:        RuntimeLabels,
		Local:         dir,
		Resolver:      &StaticResolver{Assets: assets},
		Downloader:    downloader,
		Installer:     &ArchiveInstaller{Dir: dir, Archive: archiveName, GOOS: goos},
		Sink:          sink,
		ProvisionOnce: true,
	}
}
