package orchestrator

import (
	"context"

	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

// DomainStatus compares the cached and remote versions of one domain
type DomainStatus struct {
	Domain models.Domain
	Local  string // empty when nothing valid is cached
	Remote string // empty when resolution failed
	Path   string
	Err    error
}

// UpdateAvailable reports whether the remote version is newer than the local one
func (s DomainStatus) UpdateAvailable() bool {
	if s.Remote == "" {
		return false
	}
	return s.Local == "" || version.Compare(s.Remote, s.Local) > 0
}

// Check resolves the launcher and client releases without downloading
// anything, and reports whether the runtime is provisioned
func (c *Components) Check(ctx context.Context) []DomainStatus {
	var statuses []DomainStatus

	launcher := DomainStatus{Domain: models.DomainLauncher, Local: version.Current()}
	if staged, ok := c.LauncherStore.BestLocal(); ok && version.Compare(staged.Version, launcher.Local) > 0 {
		launcher.Local = staged.Version
		launcher.Path = staged.Path
	}
	statuses = append(statuses, c.resolve(ctx, launcher))

	runtime := DomainStatus{Domain: models.DomainRuntime}
	if installed, ok := c.RuntimeDir.BestLocal(); ok {
		runtime.Local = "installed"
		runtime.Path = installed.Path
	}
	statuses = append(statuses, runtime)

	client := DomainStatus{Domain: models.DomainClient}
	if cached, ok := c.ClientStore.BestLocal(); ok {
		client.Local = cached.Version
		client.Path = cached.Path
	}
	statuses = append(statuses, c.resolve(ctx, client))

	return statuses
}

func (c *Components) resolve(ctx context.Context, status DomainStatus) DomainStatus {
	release, err := c.Resolver.ResolveLatest(ctx, status.Domain, nil)
	if err != nil {
		status.Err = err
		return status
	}
	status.Remote = release.Version
	return status
}
