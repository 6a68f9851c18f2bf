package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

const (
	// DefaultTimeout bounds metadata requests and the wait for response headers
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRedirects caps the redirect chain of a single request
	DefaultMaxRedirects = 10

	userAgent = "Gielenor-Launcher/%s"
)

// Client performs the launcher's HTTP GETs
type Client struct {
	httpClient   *http.Client
	userAgent    string
	token        string
	timeout      time.Duration
	maxRedirects int
}

// Option configures a Client during construction
type Option func(*Client)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRedirects overrides DefaultMaxRedirects
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithToken attaches a GitHub token to requests aimed at GitHub hosts.
// Authenticated requests get 5000 requests/hour instead of 60.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new transport client
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent:    fmt.Sprintf(userAgent, version.Current()),
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.ResponseHeaderTimeout = c.timeout

	c.httpClient = &http.Client{
		Transport: rt,
		// Redirects are followed by follow() so the hop count stays bounded
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c
}

// do executes a single GET without following redirects
func (c *Client) do(ctx context.Context, rawURL string, header http.Header, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" && accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", c.userAgent)

	// Never leak the token to the CDN a download redirects to
	if c.token != "" && isGitHubHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

// follow performs a GET and follows up to maxRedirects redirects. The returned
// response is never a redirect.
func (c *Client) follow(ctx context.Context, rawURL string, header http.Header, accept string) (*http.Response, string, error) {
	current := rawURL
	for hop := 0; hop <= c.maxRedirects; hop++ {
		resp, err := c.do(ctx, current, header, accept)
		if err != nil {
			return nil, current, err
		}

		if !isRedirect(resp.StatusCode) {
			return resp, current, nil
		}

		location := resp.Header.Get("Location")
		drainAndClose(resp.Body)
		if location == "" {
			return nil, current, &StatusError{URL: redactURL(current), StatusCode: resp.StatusCode, Header: resp.Header}
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			return nil, current, err
		}

		log.Debugf("following %d redirect from %s to %s", resp.StatusCode, redactURL(current), redactURL(next))
		current = next
	}

	return nil, current, fmt.Errorf("%w: stopped after %d redirects at %s", models.ErrNetwork, c.maxRedirects, redactURL(current))
}

// classify maps a transport error onto the launcher's error taxonomy.
// parent is the caller's context, before any timeout was applied.
func classify(parent context.Context, err error) error {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return err
	case errors.Is(err, models.ErrNetwork), errors.Is(err, models.ErrCancelled):
		return err
	case errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", models.ErrCancelled, err)
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return fmt.Errorf("%w: %w", models.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrNetwork, err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRedirect(status int) bool {
	return status >= 300 && status <= 399
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL %q: %w", models.ErrNetwork, redactURL(current), err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect location: %w", models.ErrNetwork, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// isGitHubHost reports whether the token may be attached to a request for u
func isGitHubHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "api.github.com" || host == "github.com"
}

// redactURL strips query parameters and fragments, which may carry signed tokens
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	if err := body.Close(); err != nil {
		log.Debugf("error closing response body: %v", err)
	}
}
