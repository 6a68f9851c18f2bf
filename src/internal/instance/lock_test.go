package instance

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launcher.lock")
	lock := NewLock(path)

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Acquire())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, path)
	require.NoError(t, lock.Release())
}

func TestLockReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0644))

	lock := NewLock(path)
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), strconv.Itoa(os.Getpid()))
}

func TestLockReplacesDeadProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	cmd := exec.Command("sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())
	deadPID := cmd.ProcessState.Pid()

	path := filepath.Join(t.TempDir(), "launcher.lock")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(deadPID)), 0644))

	lock := NewLock(path)
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
}

func TestLockHeldByLiveProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	cmd := exec.Command("sh", "-c", "sleep 5")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	path := filepath.Join(t.TempDir(), "launcher.lock")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)), 0644))

	err := NewLock(path).Acquire()
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.FileExists(t, path)
}
