package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned when another live launcher holds the lock
var ErrAlreadyRunning = errors.New("another launcher instance is already running")

// Lock is a PID file that keeps a single launcher running per data directory
type Lock struct {
	filePath string
	held     bool
	mu       sync.Mutex
}

// NewLock creates a lock backed by filePath
func NewLock(filePath string) *Lock {
	return &Lock{
		filePath: filePath,
	}
}

// Acquire takes the lock. A lock file left by a dead process, or one that
// cannot be parsed, is treated as stale and replaced.
func (l *Lock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create()
		if err == nil {
			l.held = true
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		pid, err := l.readPID()
		if err == nil && pid != os.Getpid() && processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}

		log.Warnf("Removing stale lock file %s", l.filePath)
		if err := os.Remove(l.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}

	return fmt.Errorf("failed to acquire lock %s", l.filePath)
}

// Release removes the lock file if this process holds it
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// create writes our PID to a new lock file, failing if it exists
func (l *Lock) create() error {
	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}
	return nil
}

// readPID reads the PID from the lock file
func (l *Lock) readPID() (int, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return 0, err
	}

	line := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(line)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in lock file: %q", line)
	}
	return pid, nil
}
