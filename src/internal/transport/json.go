package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gielenor/launcher/src/pkg/models"
)

// maxJSONResponseBytes bounds metadata responses (10 MB)
const maxJSONResponseBytes = 10 << 20

// Response is the result of a metadata fetch
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned for any non-2xx response. It carries the headers
// so callers can compute rate-limit backoff.
type StatusError struct {
	URL        string
	StatusCode int
	Header     http.Header
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.URL)
}

// Unwrap makes every StatusError a network failure
func (e *StatusError) Unwrap() error {
	return models.ErrNetwork
}

// FetchJSON performs a single GET bounded by the client timeout and decodes the
// JSON body into out. Only a 2xx status with a parseable body succeeds.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, header http.Header, out any) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, finalURL, err := c.follow(reqCtx, rawURL, header, "application/json")
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &StatusError{URL: redactURL(finalURL), StatusCode: resp.StatusCode, Header: resp.Header}
	}

	if out == nil {
		if !json.Valid(body) {
			return result, fmt.Errorf("%w: invalid JSON from %s", models.ErrNetwork, redactURL(finalURL))
		}
		return result, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return result, fmt.Errorf("%w: failed to decode response from %s: %w", models.ErrNetwork, redactURL(finalURL), err)
	}

	return result, nil
}
