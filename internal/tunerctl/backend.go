// SPDX-License-Identifier: MIT

// Package tunerctl is the seam to the tuner hardware-control collaborator.
// The scheduler pushes committed assignments through it and consumes the
// asynchronous status events it reports back.
package tunerctl

import (
	"context"
	"sync"
	"time"

	"github.com/svoss/recplan/internal/plan"
)

// EventType classifies backend reports.
type EventType string

const (
	EventTunerOffline      EventType = "tuner_offline"
	EventTunerOnline       EventType = "tuner_online"
	EventRecordingStarted  EventType = "recording_started"
	EventRecordingFinished EventType = "recording_finished"
	EventRecordingFailed   EventType = "recording_failed"
	EventRecordingAborted  EventType = "recording_aborted"
)

// Event is one asynchronous status change reported by the backend.
type Event struct {
	Type      EventType
	TunerID   plan.TunerID
	ShowingID plan.ShowingID
	RuleID    string
	At        time.Time
	Detail    string
}

// Backend drives real capture hardware. Push is triggered by, but not
// synchronous with, the planning cycle: the backend applies assignments on
// its own schedule and reports outcomes through Events.
type Backend interface {
	Push(ctx context.Context, recs []plan.Recording) error
	Events() <-chan Event
}

// Loopback is an in-memory backend used by tests and by the daemon when no
// hardware collaborator is configured. It remembers the last push and lets
// callers inject events.
type Loopback struct {
	mu     sync.Mutex
	last   []plan.Recording
	pushes int
	events chan Event
}

// NewLoopback creates a loopback backend with a buffered event stream.
func NewLoopback() *Loopback {
	return &Loopback{events: make(chan Event, 64)}
}

// Push implements Backend.
func (l *Loopback) Push(_ context.Context, recs []plan.Recording) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = append([]plan.Recording(nil), recs...)
	l.pushes++
	return nil
}

// Events implements Backend.
func (l *Loopback) Events() <-chan Event { return l.events }

// Inject emits an event as if the hardware had reported it.
func (l *Loopback) Inject(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	l.events <- ev
}

// LastPush returns the most recently pushed assignment set.
func (l *Loopback) LastPush() []plan.Recording {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]plan.Recording(nil), l.last...)
}

// Pushes returns how many pushes the backend has received.
func (l *Loopback) Pushes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pushes
}
