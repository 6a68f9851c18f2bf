package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/pkg/models"
)

const (
	chunkSize  = 32 * 1024
	partSuffix = ".part"
)

// ProgressFunc receives the download percentage, 0-100
type ProgressFunc func(percent int)

// Task tracks a single download
type Task struct {
	ID          string
	URL         string
	Destination string
	Total       int64
	Received    int64
	StartedAt   time.Time

	lastPercent int
}

// NewTask creates a download task for url into dest
func NewTask(url, dest string) *Task {
	return &Task{
		ID:          uuid.New().String(),
		URL:         url,
		Destination: dest,
		Total:       -1,
		lastPercent: -1,
	}
}

// PartPath is where the body is streamed before being moved into place
func (t *Task) PartPath() string {
	return t.Destination + partSuffix
}

// Percent returns the current progress, or -1 when the size is unknown
func (t *Task) Percent() int {
	if t.Total <= 0 {
		return -1
	}
	percent := int(t.Received * 100 / t.Total)
	if percent > 100 {
		percent = 100
	}
	return percent
}

// discard removes any partial file left by this or an earlier attempt
func (t *Task) discard() error {
	if err := os.Remove(t.PartPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove partial download: %w", err)
	}
	return nil
}

func (t *Task) report(onProgress ProgressFunc) {
	if onProgress == nil {
		return
	}
	percent := t.Percent()
	if percent < 0 || percent == t.lastPercent {
		return
	}
	t.lastPercent = percent
	onProgress(percent)
}

// stream copies body into the part file and moves it to the destination.
// touch is called whenever bytes arrive.
func (t *Task) stream(body io.Reader, onProgress ProgressFunc, touch func()) error {
	out, err := os.OpenFile(t.PartPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	buffer := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buffer)
		if n > 0 {
			touch()
			if _, err := out.Write(buffer[:n]); err != nil {
				out.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			t.Received += int64(n)
			t.report(onProgress)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return fmt.Errorf("failed to read response: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(t.PartPath(), t.Destination); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// errStalled cancels a download whose body stopped arriving
var errStalled = errors.New("download stalled")

// DownloadToFile streams url into dest, following redirects. Progress is only
// reported for the final response and only when its length is known; 100 is
// always reported on success. On failure or cancellation nothing is left at
// dest's partial path, and calling it again with the same dest is safe.
// The body may take any time in total, but a gap longer than the client
// timeout between chunks fails with models.ErrTimeout.
func (c *Client) DownloadToFile(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	task := NewTask(url, dest)
	task.StartedAt = time.Now()
	logger := log.WithFields(log.Fields{
		"task": task.ID,
		"url":  redactURL(url),
	})

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := task.discard(); err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale download: %w", err)
	}

	dlCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(c.timeout, func() { cancel(errStalled) })
	defer idle.Stop()

	logger.Infof("Downloading to %s", dest)
	resp, finalURL, err := c.follow(dlCtx, url, nil, "application/octet-stream")
	if err != nil {
		return c.classifyDownload(ctx, dlCtx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{URL: redactURL(finalURL), StatusCode: resp.StatusCode, Header: resp.Header}
	}

	task.Total = resp.ContentLength
	idle.Reset(c.timeout)
	touch := func() { idle.Reset(c.timeout) }
	if err := task.stream(resp.Body, onProgress, touch); err != nil {
		if discardErr := task.discard(); discardErr != nil {
			logger.Warnf("%v", discardErr)
		}
		return c.classifyDownload(ctx, dlCtx, err)
	}

	if onProgress != nil && task.lastPercent != 100 {
		onProgress(100)
	}

	logger.Infof("Downloaded %d bytes in %s", task.Received, time.Since(task.StartedAt).Round(time.Millisecond))
	return nil
}

// classifyDownload reports a stalled body as a timeout and defers to classify otherwise
func (c *Client) classifyDownload(parent, dlCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(context.Cause(dlCtx), errStalled) {
		return fmt.Errorf("%w: no data received for %s: %v", models.ErrTimeout, c.timeout, err)
	}
	return classify(parent, err)
}
