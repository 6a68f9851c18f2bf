package update

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/transport"
	"github.com/gielenor/launcher/src/internal/ui"
	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

// Pipeline stages, used in logs and error messages
const (
	StageResolving   = "resolving"
	StageDownloading = "downloading"
	StageInstalling  = "installing"
	StageLaunching   = "launching"
)

// Resolver finds the latest remote release of a domain
type Resolver interface {
	ResolveLatest(ctx context.Context, domain models.Domain, onRetry models.RetryNotify) (*models.ReleaseDescriptor, error)
}

// Downloader streams a URL to a file
type Downloader interface {
	DownloadToFile(ctx context.Context, url, dest string, onProgress transport.ProgressFunc) error
}

// LocalSource exposes the cached artifacts of a domain
type LocalSource interface {
	BestLocal() (models.Artifact, bool)
	IsValidArtifact(path string) bool
}

// Installer validates a downloaded file and turns it into an installed artifact
type Installer interface {
	// Stage returns where the release should be downloaded to
	Stage(release *models.ReleaseDescriptor) string
	// Install validates the staged download and returns the artifact path
	Install(ctx context.Context, staged string, release *models.ReleaseDescriptor) (string, error)
}

// Launcher spawns an installed artifact
type Launcher interface {
	Launch(ctx context.Context, artifact models.Artifact) error
}

// Labels holds the phase and status templates shown for a domain.
// Templates may use {platform} and {version}.
type Labels struct {
	Phase       string
	Checking    string
	Downloading string
	Installing  string
	UpToDate    string
	Updated     string
	Fallback    string
	Failed      string
	LaunchPhase string
	Launching   string
}

// Pipeline resolves, downloads, installs and launches one domain's artifact
type Pipeline struct {
	Domain   models.Domain
	Platform models.Platform
	Labels   Labels

	Local      LocalSource
	Resolver   Resolver
	Downloader Downloader
	Installer  Installer
	Launcher   Launcher // nil for domains that are not launched directly
	Sink       ui.Sink

	// Disabled skips the pipeline entirely
	Disabled bool
	// Offline skips resolution and uses the local best artifact
	Offline bool
	// ProvisionOnce short-circuits when a valid local artifact exists
	ProvisionOnce bool
	// Baseline is the version already running; local artifacts not newer are ignored
	Baseline string
}

// run holds the state of one Pipeline.Run invocation
type run struct {
	*Pipeline
	logger   *log.Entry
	local    models.Artifact
	hasLocal bool
}

// Run executes the pipeline once. It never panics on remote failures: every
// failure after the local best artifact is known gets exactly one fallback.
func (p *Pipeline) Run(ctx context.Context) models.Outcome {
	r := &run{
		Pipeline: p,
		logger: log.WithFields(log.Fields{
			"domain": p.Domain,
			"run":    uuid.New().String(),
		}),
	}

	if p.Disabled {
		r.logger.Info("Pipeline disabled, skipping")
		return models.Outcome{Domain: p.Domain, Kind: models.OutcomeSkipped}
	}

	sink := r.sink()
	sink.Phase(p.Labels.Phase)
	r.status(p.Labels.Checking, "")
	sink.Progress(0)

	r.local, r.hasLocal = r.bestLocal()
	if r.hasLocal {
		r.logger.Infof("Local best: %s", describe(r.local))
	}

	if err := ctx.Err(); err != nil {
		return r.cancelled(err)
	}

	if p.ProvisionOnce && r.hasLocal {
		r.logger.Info("Already provisioned, skipping remote check")
		r.status(p.Labels.UpToDate, r.local.Version)
		return r.finish(ctx, r.noUpdate())
	}

	if p.Offline {
		r.logger.Info("Offline mode, skipping remote check")
		if !r.hasLocal && p.Baseline == "" {
			return r.fail(StageResolving, errors.New("offline mode"))
		}
		r.status(p.Labels.UpToDate, r.local.Version)
		return r.finish(ctx, r.noUpdate())
	}

	// Stage 1: Resolve
	release, err := p.Resolver.ResolveLatest(ctx, p.Domain, r.onRetry)
	if err != nil {
		return r.fallback(ctx, StageResolving, err)
	}

	// Stage 2: Compare
	installed, known := r.installedVersion()
	remote := version.Parse(release.Version)
	if known && remote.Compare(installed) <= 0 {
		r.logger.Infof("Remote %s is not newer than installed %s", remote, installed)
		r.status(p.Labels.UpToDate, r.local.Version)
		return r.finish(ctx, r.noUpdate())
	}

	url, ok := release.AssetFor(p.Platform)
	if !ok {
		return r.fallback(ctx, StageResolving, fmt.Errorf("%w: no asset for %s", models.ErrAssetNotFound, p.Platform))
	}

	// Stage 3: Download
	staged := p.Installer.Stage(release)
	r.logger.Infof("Updating to %s from %s", release.Version, url)
	r.status(p.Labels.Downloading, release.Version)
	sink.Progress(0)

	if err := p.Downloader.DownloadToFile(ctx, url, staged, sink.Progress); err != nil {
		return r.fallback(ctx, StageDownloading, err)
	}

	// Stage 4: Validate and install
	r.status(p.Labels.Installing, release.Version)
	path, err := p.Installer.Install(ctx, staged, release)
	if err != nil {
		return r.fallback(ctx, StageInstalling, err)
	}

	r.logger.Infof("Installed %s at %s", release.Version, path)
	r.status(p.Labels.Updated, release.Version)
	sink.Progress(100)

	return r.finish(ctx, models.Outcome{
		Domain:       p.Domain,
		Kind:         models.OutcomeUpdated,
		Version:      release.Version,
		ArtifactPath: path,
	})
}

func (r *run) sink() ui.Sink {
	if r.Sink == nil {
		return ui.Nop{}
	}
	return r.Sink
}

func (r *run) status(template, v string) {
	if template == "" {
		return
	}
	r.sink().Status(ui.Format(template, map[string]any{
		"platform": r.Platform.Label(),
		"version":  v,
	}))
}

func (r *run) onRetry(attempt int, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	r.logger.Infof("Rate limited (attempt %d), waiting %ds", attempt, seconds)
	r.sink().Status(ui.Format(ui.StatusRateLimitRetry, map[string]any{"seconds": seconds}))
}

// bestLocal returns the local best artifact, ignoring ones not newer than the baseline
func (r *run) bestLocal() (models.Artifact, bool) {
	local, ok := r.Local.BestLocal()
	if !ok || r.Baseline == "" {
		return local, ok
	}
	if version.Compare(local.Version, r.Baseline) <= 0 {
		r.logger.Debugf("Ignoring cached %s, not newer than running %s", local.Version, r.Baseline)
		return models.Artifact{}, false
	}
	return local, true
}

// installedVersion is the higher of the local best and the baseline
func (r *run) installedVersion() (version.Version, bool) {
	var installed version.Version
	known := false
	if r.hasLocal {
		installed = version.Parse(r.local.Version)
		known = true
	}
	if r.Baseline != "" {
		baseline := version.Parse(r.Baseline)
		if !known || baseline.Compare(installed) > 0 {
			installed = baseline
		}
		known = true
	}
	return installed, known
}

// noUpdate reports the local state when nothing was downloaded. A cached
// artifact newer than the baseline is still an update for the caller.
func (r *run) noUpdate() models.Outcome {
	outcome := models.Outcome{Domain: r.Domain, Kind: models.OutcomeNoUpdateNeeded}
	if !r.hasLocal {
		if r.Baseline == "" {
			outcome.Kind = models.OutcomeFailed
			outcome.Err = fmt.Errorf("%s: %w", r.Domain, models.ErrNoFallback)
		}
		return outcome
	}

	outcome.Version = r.local.Version
	outcome.ArtifactPath = r.local.Path
	if r.Baseline != "" {
		outcome.Kind = models.OutcomeUpdated
	}
	return outcome
}

// fallback makes the single fallback attempt to the local best artifact
func (r *run) fallback(ctx context.Context, stage string, cause error) models.Outcome {
	if ctx.Err() != nil || errors.Is(cause, models.ErrCancelled) {
		return r.cancelled(cause)
	}

	r.logger.WithField("stage", stage).Warnf("Update failed: %v", cause)

	if r.hasLocal && r.Local.IsValidArtifact(r.local.Path) {
		r.logger.Infof("Falling back to cached %s", describe(r.local))
		r.status(r.Labels.Fallback, r.local.Version)
		return r.finish(ctx, models.Outcome{
			Domain:       r.Domain,
			Kind:         models.OutcomeUpdated,
			Version:      r.local.Version,
			ArtifactPath: r.local.Path,
			FromFallback: true,
		})
	}

	return r.fail(stage, cause)
}

func (r *run) fail(stage string, cause error) models.Outcome {
	var result *multierror.Error
	result = multierror.Append(result, fmt.Errorf("%s %s: %w", r.Domain, stage, cause))
	result = multierror.Append(result, models.ErrNoFallback)
	result.ErrorFormat = joinErrors

	r.logger.WithField("stage", stage).Errorf("No usable artifact: %v", cause)
	r.status(r.Labels.Failed, "")
	return models.Outcome{Domain: r.Domain, Kind: models.OutcomeFailed, Err: result}
}

func (r *run) cancelled(cause error) models.Outcome {
	r.logger.Info("Cancelled")
	r.sink().Status(ui.StatusCancelled)

	err := cause
	if !errors.Is(err, models.ErrCancelled) {
		err = fmt.Errorf("%w: %w", models.ErrCancelled, cause)
	}
	return models.Outcome{Domain: r.Domain, Kind: models.OutcomeFailed, Err: err}
}

// finish launches the outcome's artifact when the domain is launchable
func (r *run) finish(ctx context.Context, outcome models.Outcome) models.Outcome {
	if r.Launcher == nil || !outcome.HasArtifact() {
		return outcome
	}
	if err := ctx.Err(); err != nil {
		return r.cancelled(err)
	}

	if r.Labels.LaunchPhase != "" {
		r.sink().Phase(r.Labels.LaunchPhase)
	}
	r.status(r.Labels.Launching, outcome.Version)

	artifact := models.Artifact{Domain: r.Domain, Version: outcome.Version, Path: outcome.ArtifactPath}
	if err := r.Launcher.Launch(ctx, artifact); err != nil {
		r.logger.WithField("stage", StageLaunching).Errorf("Launch failed: %v", err)
		outcome.Kind = models.OutcomeFailed
		outcome.Err = fmt.Errorf("%w: %s: %w", models.ErrLaunch, outcome.ArtifactPath, err)
		return outcome
	}

	outcome.Launched = true
	r.logger.Infof("Launched %s", describe(artifact))
	return outcome
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

func describe(a models.Artifact) string {
	if a.Version == "" {
		return a.Path
	}
	return fmt.Sprintf("%s (%s)", a.Version, a.Path)
}
