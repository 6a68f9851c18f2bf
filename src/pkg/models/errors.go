package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers connection failures and unexpected HTTP statuses
	ErrNetwork = errors.New("network failure")

	// ErrTimeout is a network failure caused by the request deadline
	ErrTimeout = fmt.Errorf("%w: request timed out", ErrNetwork)

	// ErrRateLimited is returned once the metadata endpoint keeps answering 403/429
	ErrRateLimited = errors.New("rate limited by release source")

	// ErrAssetNotFound means the release resolved but lists no matching artifact
	ErrAssetNotFound = errors.New("release asset not found")

	// ErrIntegrity means a downloaded or extracted artifact failed its validity check
	ErrIntegrity = errors.New("artifact integrity check failed")

	// ErrCancelled means the user aborted the run
	ErrCancelled = errors.New("cancelled by user")

	// ErrNoFallback is terminal: the remote path failed and no valid cached artifact exists
	ErrNoFallback = errors.New("no valid local artifact to fall back to")

	// ErrLaunch means the artifact could not be spawned
	ErrLaunch = errors.New("failed to launch artifact")
)

// IsFatal reports whether err must be surfaced to the user
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoFallback) || errors.Is(err, ErrLaunch)
}
