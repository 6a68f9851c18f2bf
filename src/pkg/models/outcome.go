package models

import "errors"

// OutcomeKind is the terminal state of one pipeline run
type OutcomeKind string

const (
	OutcomeSkipped        OutcomeKind = "skipped"
	OutcomeNoUpdateNeeded OutcomeKind = "no-update"
	OutcomeUpdated        OutcomeKind = "updated"
	OutcomeFailed         OutcomeKind = "failed"
)

// Outcome is produced once per pipeline run and consumed by the orchestrator
type Outcome struct {
	Domain       Domain      `json:"domain"`
	Kind         OutcomeKind `json:"kind"`
	Version      string      `json:"version,omitempty"`
	ArtifactPath string      `json:"artifact_path,omitempty"`
	FromFallback bool        `json:"from_fallback"`
	Launched     bool        `json:"launched"`
	Err          error       `json:"-"`
}

// Cancelled reports whether the run ended because the user aborted it
func (o Outcome) Cancelled() bool {
	return o.Kind == OutcomeFailed && errors.Is(o.Err, ErrCancelled)
}

// HasArtifact reports whether the run ended with something usable on disk
func (o Outcome) HasArtifact() bool {
	return o.ArtifactPath != "" && o.Kind != OutcomeFailed
}
