package orchestrator

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/ui"
	"github.com/gielenor/launcher/src/pkg/models"
)

// Result is how a launcher run ended
type Result string

const (
	// ResultLaunched means the client was spawned
	ResultLaunched Result = "launched"
	// ResultHandedOff means a new launcher build was applied and restarted
	ResultHandedOff Result = "handed-off"
	// ResultCompleted means every domain is ready but nothing was launched
	ResultCompleted Result = "completed"
	// ResultCancelled means the user aborted the run
	ResultCancelled Result = "cancelled"
	// ResultFatal means no client could be launched
	ResultFatal Result = "fatal"
)

// Runner is one domain's update pipeline
type Runner interface {
	Run(ctx context.Context) models.Outcome
}

// Applier installs a staged launcher build over the running one and restarts it
type Applier interface {
	Apply(ctx context.Context, artifact models.Artifact) error
}

// Orchestrator runs the self-update, runtime and client pipelines in order
type Orchestrator struct {
	SelfUpdate Runner // optional
	Runtime    Runner
	Client     Runner
	Applier    Applier // optional
	Sink       ui.Sink
}

// Run drives one launcher session. The returned error is non-nil only for
// ResultFatal.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	sink := o.Sink
	if sink == nil {
		sink = ui.Nop{}
	}

	sink.Phase(ui.PhaseStarting)
	sink.Status(ui.StatusOpeningLauncher)
	sink.Progress(0)

	if o.SelfUpdate != nil {
		outcome := o.SelfUpdate.Run(ctx)
		if outcome.Cancelled() {
			return ResultCancelled, nil
		}
		handedOff, cancelled := o.handOff(ctx, outcome)
		if cancelled {
			return ResultCancelled, nil
		}
		if handedOff {
			return ResultHandedOff, nil
		}
	}

	outcome := o.Runtime.Run(ctx)
	if outcome.Cancelled() {
		return ResultCancelled, nil
	}
	if outcome.Kind == models.OutcomeFailed {
		return ResultFatal, unavailable("java runtime", outcome.Err)
	}

	outcome = o.Client.Run(ctx)
	switch {
	case outcome.Cancelled():
		return ResultCancelled, nil
	case outcome.Kind == models.OutcomeFailed:
		return ResultFatal, unavailable("game client", outcome.Err)
	case outcome.Launched:
		sink.Status(ui.StatusStartingCoreClasses)
		sink.Progress(100)
		return ResultLaunched, nil
	default:
		return ResultCompleted, nil
	}
}

// unavailable builds the error for a domain the session cannot continue
// without. The result always satisfies models.IsFatal.
func unavailable(what string, err error) error {
	if !models.IsFatal(err) {
		err = fmt.Errorf("%w: %w", models.ErrNoFallback, err)
	}
	err = fmt.Errorf("%s unavailable: %w", what, err)
	log.Error(err)
	return err
}

// handOff applies an updated launcher. Failures other than cancellation are
// logged and the session continues on the running build.
func (o *Orchestrator) handOff(ctx context.Context, outcome models.Outcome) (handedOff, cancelled bool) {
	logger := log.WithField("domain", models.DomainLauncher)

	switch {
	case outcome.Kind == models.OutcomeFailed:
		logger.Warnf("Launcher update failed, continuing with the running build: %v", outcome.Err)
		return false, false
	case outcome.Kind != models.OutcomeUpdated || !outcome.HasArtifact():
		return false, false
	case o.Applier == nil:
		logger.Infof("Launcher %s is staged, no applier configured", outcome.Version)
		return false, false
	}

	err := o.Applier.Apply(ctx, models.Artifact{
		Domain:  models.DomainLauncher,
		Version: outcome.Version,
		Path:    outcome.ArtifactPath,
	})
	switch {
	case err == nil:
		logger.Infof("Handed off to launcher %s", outcome.Version)
		return true, false
	case errors.Is(err, models.ErrCancelled):
		return false, true
	default:
		logger.Errorf("Failed to apply launcher %s: %v", outcome.Version, err)
		return false, false
	}
}
