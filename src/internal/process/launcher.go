package process

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/pkg/models"
)

// Spec describes a detached child process
type Spec struct {
	Domain  models.Domain
	Binary  string
	Args    []string
	WorkDir string
}

// Spawn starts a detached child process and releases it. The child keeps
// running after the launcher exits.
func Spawn(spec Spec) (*models.ProcessInstance, error) {
	cmd := exec.Command(spec.Binary, spec.Args...)
	cmd.Dir = spec.WorkDir
	cmd.SysProcAttr = detachedAttr()
	// No stdio: the child must not hold the launcher's console
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	instance := &models.ProcessInstance{
		ID:      uuid.New().String(),
		Domain:  spec.Domain,
		Path:    spec.Binary,
		Args:    spec.Args,
		WorkDir: spec.WorkDir,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	instance.PID = cmd.Process.Pid
	instance.StartTime = time.Now()

	if err := cmd.Process.Release(); err != nil {
		log.Debugf("failed to release process %d: %v", instance.PID, err)
	}

	log.WithFields(log.Fields{
		"instance": instance.ID,
		"pid":      instance.PID,
		"domain":   spec.Domain,
	}).Infof("Started %s", filepath.Base(spec.Binary))

	return instance, nil
}

// JarLauncher runs client jars with the provisioned Java runtime
type JarLauncher struct {
	// Java returns the java executable; it is resolved at launch time
	// because the runtime may be installed after the launcher is built
	Java     func() string
	JavaArgs []string

	spawn func(Spec) (*models.ProcessInstance, error)
}

// NewJarLauncher creates a launcher for client jars
func NewJarLauncher(java func() string, javaArgs []string) *JarLauncher {
	return &JarLauncher{
		Java:     java,
		JavaArgs: javaArgs,
		spawn:    Spawn,
	}
}

// Command returns the spec used to run the jar: java [args] -jar <jar>,
// working in the jar's directory
func (l *JarLauncher) Command(artifact models.Artifact) Spec {
	args := make([]string, 0, len(l.JavaArgs)+2)
	args = append(args, l.JavaArgs...)
	args = append(args, "-jar", artifact.Path)

	return Spec{
		Domain:  artifact.Domain,
		Binary:  l.Java(),
		Args:    args,
		WorkDir: filepath.Dir(artifact.Path),
	}
}

// Launch spawns the jar and returns once the process has started
func (l *JarLauncher) Launch(ctx context.Context, artifact models.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	spawn := l.spawn
	if spawn == nil {
		spawn = Spawn
	}
	_, err := spawn(l.Command(artifact))
	return err
}
