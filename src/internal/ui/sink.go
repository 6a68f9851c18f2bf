package ui

import (
	log "github.com/sirupsen/logrus"
)

// Sink receives user visible progress events
type Sink interface {
	Phase(label string)
	Status(message string)
	Progress(percent int)
}

// Nop discards every event
type Nop struct{}

func (Nop) Phase(string)  {}
func (Nop) Status(string) {}
func (Nop) Progress(int)  {}

// Multi fans events out to several sinks
type Multi []Sink

func (m Multi) Phase(label string) {
	for _, s := range m {
		s.Phase(label)
	}
}

func (m Multi) Status(message string) {
	for _, s := range m {
		s.Status(message)
	}
}

func (m Multi) Progress(percent int) {
	for _, s := range m {
		s.Progress(percent)
	}
}

// LogSink writes events to the log. Progress is logged in 10% steps.
type LogSink struct {
	lastBucket int
}

// NewLogSink creates a new log sink
func NewLogSink() *LogSink {
	return &LogSink{lastBucket: -1}
}

func (l *LogSink) Phase(label string) {
	l.lastBucket = -1
	log.WithField("phase", label).Info("Phase changed")
}

func (l *LogSink) Status(message string) {
	log.Info(message)
}

func (l *LogSink) Progress(percent int) {
	bucket := percent / 10
	if percent < 0 || bucket == l.lastBucket {
		return
	}
	l.lastBucket = bucket
	log.Debugf("Progress: %d%%", percent)
}
