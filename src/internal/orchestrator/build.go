package orchestrator

import (
	"path/filepath"
	"runtime"

	"github.com/gielenor/launcher/src/internal/artifact"
	"github.com/gielenor/launcher/src/internal/github"
	"github.com/gielenor/launcher/src/internal/process"
	"github.com/gielenor/launcher/src/internal/transport"
	"github.com/gielenor/launcher/src/internal/ui"
	"github.com/gielenor/launcher/src/internal/update"
	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

// Components are the collaborators shared by the pipelines of one session
type Components struct {
	Config   *models.Config
	Platform models.Platform
	GOOS     string

	Transport     *transport.Client
	Resolver      *github.Resolver
	LauncherStore *artifact.Store
	ClientStore   *artifact.Store
	RuntimeDir    *artifact.InstallDir
}

// NewComponents wires the transport, resolver and stores from configuration
func NewComponents(cfg *models.Config) *Components {
	platform := models.HostPlatform()

	client := transport.NewClient(
		transport.WithTimeout(cfg.Network.Timeout),
		transport.WithMaxRedirects(cfg.Network.MaxRedirects),
		transport.WithToken(cfg.Network.GitHubToken),
	)

	resolver := github.NewResolver(client,
		github.WithPlatform(platform),
		github.WithAttempts(cfg.Network.RateLimitAttempts),
		github.WithMaxWait(cfg.Network.MaxRateLimitWait),
	)
	resolver.Register(models.DomainLauncher, github.LauncherSource(cfg.SelfUpdate.Endpoint, cfg.SelfUpdate.AssetPrefix, runtime.GOARCH))
	resolver.Register(models.DomainClient, github.ClientSource(cfg.Client.Endpoint, cfg.Client.AssetPrefix, cfg.Client.AssetExtension))

	launcherExt := ""
	if platform == models.PlatformWindows {
		launcherExt = ".exe"
	}

	return &Components{
		Config:        cfg,
		Platform:      platform,
		GOOS:          runtime.GOOS,
		Transport:     client,
		Resolver:      resolver,
		LauncherStore: artifact.NewStore(models.DomainLauncher, filepath.Join(cfg.DataDir, "launcher"), cfg.SelfUpdate.AssetPrefix, launcherExt),
		ClientStore:   artifact.NewStore(models.DomainClient, filepath.Join(cfg.DataDir, "client"), cfg.Client.AssetPrefix, cfg.Client.AssetExtension),
		RuntimeDir:    update.RuntimeInstallDir(cfg.DataDir, platform),
	}
}

// SelfUpdateDisabled reports whether the launcher must not replace itself:
// disabled in config, or a development build that was not forced
func (c *Components) SelfUpdateDisabled() bool {
	if !c.Config.SelfUpdate.Enabled {
		return true
	}
	dev := version.IsDevelopment() || c.Config.DevMode
	return dev && !c.Config.ForceSelfUpdate
}

// SelfUpdatePipeline checks for and stages a newer launcher build
func (c *Components) SelfUpdatePipeline(sink ui.Sink) *update.Pipeline {
	baseline := ""
	if !version.IsDevelopment() {
		baseline = version.Current()
	}

	return &update.Pipeline{
		Domain:     models.DomainLauncher,
		Platform:   c.Platform,
		Labels:     update.LauncherLabels,
		Local:      c.LauncherStore,
		Resolver:   c.Resolver,
		Downloader: c.Transport,
		Installer:  &update.DirectInstaller{Store: c.LauncherStore},
		Sink:       sink,
		Disabled:   c.SelfUpdateDisabled(),
		Offline:    c.Config.Offline,
		Baseline:   baseline,
	}
}

// RuntimePipeline provisions the Java runtime for the host platform
func (c *Components) RuntimePipeline(sink ui.Sink) *update.Pipeline {
	p := update.NewRuntimePipeline(c.RuntimeDir, c.Config.Runtime, c.Platform, c.GOOS, c.Transport, sink)
	p.Offline = c.Config.Offline
	return p
}

// ClientPipeline updates the client jar and launches it with the provisioned runtime
func (c *Components) ClientPipeline(sink ui.Sink) *update.Pipeline {
	return &update.Pipeline{
		Domain:     models.DomainClient,
		Platform:   c.Platform,
		Labels:     update.ClientLabels,
		Local:      c.ClientStore,
		Resolver:   c.Resolver,
		Downloader: c.Transport,
		Installer:  &update.DirectInstaller{Store: c.ClientStore},
		Launcher:   process.NewJarLauncher(c.RuntimeDir.EntryPoint, c.Config.Client.JavaArgs),
		Sink:       sink,
		Offline:    c.Config.Offline,
	}
}

// Orchestrator assembles the three pipelines into a session
func (c *Components) Orchestrator(sink ui.Sink, applier Applier) *Orchestrator {
	return &Orchestrator{
		SelfUpdate: c.SelfUpdatePipeline(sink),
		Runtime:    c.RuntimePipeline(sink),
		Client:     c.ClientPipeline(sink),
		Applier:    applier,
		Sink:       sink,
	}
}
