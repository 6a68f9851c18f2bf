package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	fallbackStep = 1500 * time.Millisecond
	fallbackCap  = 30 * time.Second
)

// rateLimitBackOff derives each wait from the headers of the last rate-limited
// response. attempt is the 1-based number of the request that just failed.
type rateLimitBackOff struct {
	attempt int
	header  http.Header
	now     func() time.Time
	maxWait time.Duration
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	wait := rateLimitWait(b.header, b.attempt, b.now())
	if b.maxWait > 0 && wait > b.maxWait {
		return backoff.Stop
	}
	return wait
}

func (b *rateLimitBackOff) Reset() {
	b.attempt = 0
	b.header = nil
}

// rateLimitWait returns Retry-After when present, else the time left until
// X-RateLimit-Reset, else min(30s, 1.5s * attempt)
func rateLimitWait(header http.Header, attempt int, now time.Time) time.Duration {
	if secs, ok := headerInt(header, "Retry-After"); ok && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if reset, ok := headerInt(header, "X-RateLimit-Reset"); ok {
		if remaining := time.Unix(reset, 0).Sub(now); remaining > 0 {
			return remaining.Round(time.Second)
		}
	}

	wait := time.Duration(attempt) * fallbackStep
	if wait > fallbackCap {
		wait = fallbackCap
	}
	return wait
}

func headerInt(header http.Header, key string) (int64, bool) {
	if header == nil {
		return 0, false
	}
	raw := strings.TrimSpace(header.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
