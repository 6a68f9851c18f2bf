package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/transport"
	"github.com/gielenor/launcher/src/pkg/models"
)

const (
	// DefaultAttempts is the total number of metadata requests per resolution
	DefaultAttempts = 3

	// DefaultMaxWait is the longest rate-limit wait worth sitting through
	DefaultMaxWait = 60 * time.Second
)

// Fetcher performs a JSON metadata request
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, header http.Header, out any) (*transport.Response, error)
}

// Source describes where a domain's releases live and how its assets are named
type Source struct {
	Endpoint  string
	Platforms []models.Platform
	AssetName func(tag string, platform models.Platform) string
}

// githubRelease represents a GitHub release response
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Prerelease bool   `json:"prerelease"`
	HTMLURL    string `json:"html_url"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// Resolver looks up the latest release of each registered domain
type Resolver struct {
	fetcher  Fetcher
	sources  map[models.Domain]Source
	platform models.Platform
	attempts int
	maxWait  time.Duration
	timer    backoff.Timer
	now      func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithAttempts overrides DefaultAttempts
func WithAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithMaxWait overrides DefaultMaxWait; zero disables the cap
func WithMaxWait(d time.Duration) Option {
	return func(r *Resolver) {
		r.maxWait = d
	}
}

// WithPlatform overrides the host platform
func WithPlatform(p models.Platform) Option {
	return func(r *Resolver) {
		r.platform = p
	}
}

// WithTimer replaces the timer used between retries
func WithTimer(t backoff.Timer) Option {
	return func(r *Resolver) {
		r.timer = t
	}
}

// WithClock replaces the clock used to interpret rate-limit reset headers
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a new release resolver
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		sources:  make(map[models.Domain]Source),
		platform: models.HostPlatform(),
		attempts: DefaultAttempts,
		maxWait:  DefaultMaxWait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the release source of a domain
func (r *Resolver) Register(domain models.Domain, src Source) {
	r.sources[domain] = src
}

// ResolveLatest fetches the latest release of domain and locates its asset for
// the host platform. Rate-limit responses are retried; every retry is reported
// through onRetry.
func (r *Resolver) ResolveLatest(ctx context.Context, domain models.Domain, onRetry models.RetryNotify) (*models.ReleaseDescriptor, error) {
	src, ok := r.sources[domain]
	if !ok {
		return nil, fmt.Errorf("no release source registered for %s", domain)
	}

	logger := log.WithFields(log.Fields{
		"domain":  domain,
		"resolve": uuid.New().String(),
	})

	release, err := r.fetchRelease(ctx, src.Endpoint, logger, onRetry)
	if err != nil {
		return nil, err
	}

	desc, err := r.convertRelease(domain, src, release)
	if err != nil {
		return nil, err
	}

	logger.Infof("Latest release: %s", desc.Tag)
	return desc, nil
}

// fetchRelease performs the metadata request with rate-limit retries
func (r *Resolver) fetchRelease(ctx context.Context, endpoint string, logger *log.Entry, onRetry models.RetryNotify) (*githubRelease, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")

	policy := &rateLimitBackOff{now: r.now, maxWait: r.maxWait}
	var release githubRelease

	operation := func() error {
		policy.attempt++
		release = githubRelease{}
		_, err := r.fetcher.FetchJSON(ctx, endpoint, header, &release)
		if err == nil {
			return nil
		}

		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) && isRateLimit(statusErr.StatusCode) {
			policy.header = statusErr.Header
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logger.Warnf("Rate limited on attempt %d/%d, retrying in %s", policy.attempt, r.attempts, wait)
		if onRetry != nil {
			onRetry(policy.attempt, wait)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.attempts-1)), ctx)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, r.timer)
	if err == nil {
		return &release, nil
	}

	var statusErr *transport.StatusError
	switch {
	case errors.Is(err, models.ErrCancelled):
		return nil, err
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %w", models.ErrCancelled, err)
	case errors.As(err, &statusErr) && isRateLimit(statusErr.StatusCode):
		return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrRateLimited, policy.attempt, err)
	default:
		return nil, err
	}
}

// convertRelease converts a GitHub release to a descriptor holding one asset per platform
func (r *Resolver) convertRelease(domain models.Domain, src Source, release *githubRelease) (*models.ReleaseDescriptor, error) {
	if release.TagName == "" {
		return nil, fmt.Errorf("%w: release of %s has no tag", models.ErrNetwork, domain)
	}

	desc := &models.ReleaseDescriptor{
		Domain:  domain,
		Tag:     release.TagName,
		Version: strings.TrimPrefix(strings.TrimPrefix(release.TagName, "v"), "V"),
		Assets:  make(map[models.Platform]string),
	}

	// Assets are named after the tag as published; a "v" tag whose assets
	// carry the bare version is accepted too
	tags := []string{desc.Tag}
	if desc.Version != desc.Tag {
		tags = append(tags, desc.Version)
	}
	for _, platform := range src.Platforms {
		if url, ok := findAsset(release, src, tags, platform); ok {
			desc.Assets[platform] = url
		}
	}

	if _, ok := desc.AssetFor(r.platform); !ok {
		return nil, fmt.Errorf("%w: %s %s has no asset for %s", models.ErrAssetNotFound, domain, desc.Tag, r.platform)
	}
	return desc, nil
}

func findAsset(release *githubRelease, src Source, tags []string, platform models.Platform) (string, bool) {
	for _, tag := range tags {
		want := src.AssetName(tag, platform)
		for _, asset := range release.Assets {
			if asset.Name == want && asset.BrowserDownloadURL != "" {
				return asset.BrowserDownloadURL, true
			}
		}
	}
	return "", false
}

func isRateLimit(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// ClientSource describes the platform independent client jar releases
func ClientSource(endpoint, prefix, ext string) Source {
	return Source{
		Endpoint:  endpoint,
		Platforms: []models.Platform{models.PlatformAny},
		AssetName: func(tag string, _ models.Platform) string {
			return prefix + tag + ext
		},
	}
}

// LauncherSource describes the per-platform launcher binaries, named
// <prefix><tag>_<goos>_<goarch>[.exe]
func LauncherSource(endpoint, prefix, goarch string) Source {
	return Source{
		Endpoint:  endpoint,
		Platforms: []models.Platform{models.PlatformWindows, models.PlatformMac, models.PlatformLinux},
		AssetName: func(tag string, p models.Platform) string {
			name := fmt.Sprintf("%s%s_%s_%s", prefix, tag, p, goarch)
			if p == models.PlatformWindows {
				name += ".exe"
			}
			return name
		},
	}
}
