package ui

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// DefaultBufferSize is the number of events held before new ones are dropped
const DefaultBufferSize = 64

type eventKind int

const (
	eventPhase eventKind = iota
	eventStatus
	eventProgress
)

type event struct {
	kind    eventKind
	text    string
	percent int
}

// Async delivers events to a sink on its own goroutine. Sending never blocks:
// events are dropped when the buffer is full or after Close.
type Async struct {
	sink   Sink
	events chan event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts delivering events to sink
func NewAsync(sink Sink, size int) *Async {
	if size <= 0 {
		size = DefaultBufferSize
	}
	a := &Async{
		sink:   sink,
		events: make(chan event, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		switch e.kind {
		case eventPhase:
			a.sink.Phase(e.text)
		case eventStatus:
			a.sink.Status(e.text)
		case eventProgress:
			a.sink.Progress(e.percent)
		}
	}
}

func (a *Async) send(e event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.events <- e:
	default:
		log.Debugf("UI event dropped, buffer full")
	}
}

func (a *Async) Phase(label string) {
	a.send(event{kind: eventPhase, text: label})
}

func (a *Async) Status(message string) {
	a.send(event{kind: eventStatus, text: message})
}

func (a *Async) Progress(percent int) {
	a.send(event{kind: eventProgress, percent: percent})
}

// Close stops accepting events and waits until the buffered ones are delivered
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()
	<-a.done
}
