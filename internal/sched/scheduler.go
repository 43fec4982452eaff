// SPDX-License-Identifier: MIT

// Package sched drives planning cycles: it assembles consistent snapshots,
// runs the planner, publishes the resulting recording set atomically, and
// reacts to rule edits, listings refreshes and tuner events.
package sched

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/svoss/recplan/internal/history"
	"github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/metrics"
	"github.com/svoss/recplan/internal/plan"
	"github.com/svoss/recplan/internal/tunerctl"
)

// ListingSource supplies normalized showings for a rolling window.
type ListingSource interface {
	Showings(ctx context.Context, from, to time.Time) ([]plan.Showing, error)
}

// RuleSource supplies the current rule catalog.
type RuleSource interface {
	ActiveRules() map[string]plan.Rule
}

// Recorder receives finished recordings for the history log.
type Recorder interface {
	MarkRecorded(ctx context.Context, e history.Entry) error
}

// Options tune the cycle driver.
type Options struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	Jitter       time.Duration
	StartupDelay time.Duration
	Horizon      time.Duration
	// PreemptWarn is the advance-warning lead given to live viewing sessions
	// before their tuner is reclaimed.
	PreemptWarn time.Duration
	// PromptTimeout bounds how long a live session may sit on the warning.
	PromptTimeout time.Duration
	// DataDir, when set, receives the published plan as JSON after each
	// cycle so a restart can serve a stale-but-consistent schedule.
	DataDir string
}

func (o *Options) defaults() {
	if o.BaseInterval == 0 {
		o.BaseInterval = 10 * time.Minute
	}
	if o.MaxInterval == 0 {
		o.MaxInterval = time.Hour
	}
	if o.Horizon == 0 {
		o.Horizon = 7 * 24 * time.Hour
	}
	if o.PreemptWarn == 0 {
		o.PreemptWarn = 2 * time.Minute
	}
	if o.PromptTimeout == 0 {
		o.PromptTimeout = 45 * time.Second
	}
}

// Scheduler owns the planning loop and the published recording set.
type Scheduler struct {
	rules    RuleSource
	listings ListingSource
	backend  tunerctl.Backend
	recorder Recorder
	deps     plan.Deps
	planCfg  plan.Config
	opts     Options
	logger   zerolog.Logger
	clock    Clock

	group     singleflight.Group
	published atomic.Pointer[plan.Plan]

	mu       sync.Mutex
	version  uint64
	tuners   map[plan.TunerID]plan.Tuner
	offline  map[plan.TunerID]bool
	override map[plan.ShowingID]plan.Status
	sessions map[string]plan.LiveSession
	interval time.Duration // backoff state

	kick chan string

	subMu sync.Mutex
	subs  []func(*plan.Plan)

	preempt *preemptor
}

// New assembles a scheduler. tuners is the static inventory; availability is
// overlaid from backend events.
func New(rules RuleSource, listings ListingSource, backend tunerctl.Backend, recorder Recorder, deps plan.Deps, planCfg plan.Config, tuners []plan.Tuner, opts Options) *Scheduler {
	opts.defaults()
	s := &Scheduler{
		rules:    rules,
		listings: listings,
		backend:  backend,
		recorder: recorder,
		deps:     deps,
		planCfg:  planCfg,
		opts:     opts,
		logger:   log.WithComponent("sched"),
		clock:    RealClock{},
		tuners:   make(map[plan.TunerID]plan.Tuner, len(tuners)),
		offline:  make(map[plan.TunerID]bool),
		override: make(map[plan.ShowingID]plan.Status),
		sessions: make(map[string]plan.LiveSession),
		kick:     make(chan string, 1),
	}
	for _, t := range tuners {
		s.tuners[t.ID] = t
	}
	s.preempt = newPreemptor(s, opts.PreemptWarn, opts.PromptTimeout)
	return s
}

// RestorePersisted loads the plan persisted by a previous run so a restart
// serves a stale-but-consistent schedule until the first cycle completes. A
// missing or unreadable file is not an error.
func (s *Scheduler) RestorePersisted() {
	if s.opts.DataDir == "" {
		return
	}
	path := filepath.Join(s.opts.DataDir, "schedule.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPath, path).Msg("persisted plan unreadable, ignoring")
		return
	}
	s.published.Store(&p)
	s.mu.Lock()
	if p.Version > s.version {
		s.version = p.Version
	}
	s.mu.Unlock()
	s.logger.Info().Uint64("plan_version", p.Version).Msg("restored persisted plan")
}

// Published returns the current plan, or nil before the first cycle.
func (s *Scheduler) Published() *plan.Plan {
	return s.published.Load()
}

// Subscribe registers a callback invoked with every newly published plan.
func (s *Scheduler) Subscribe(fn func(*plan.Plan)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Trigger requests a replan. Requests are coalesced; the running cycle is
// never mutated mid-flight.
func (s *Scheduler) Trigger(reason string) {
	select {
	case s.kick <- reason:
	default:
	}
}

// Start launches the cycle loop and the backend event consumer. Both stop
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
	go s.consumeEvents(ctx)
}

// snapshot assembles one consistent, immutable view of all planner inputs.
// Only committed cycles advance the version counter; read-only callers pass
// bump=false and reuse the current number.
func (s *Scheduler) snapshot(ctx context.Context, bump bool) (plan.Snapshot, error) {
	now := s.clock.Now()
	showings, err := s.listings.Showings(ctx, now.Add(-2*time.Hour), now.Add(s.opts.Horizon))
	if err != nil {
		return plan.Snapshot{}, fmt.Errorf("fetch showings: %w", err)
	}
	ruleSet := s.rules.ActiveRules()

	s.mu.Lock()
	defer s.mu.Unlock()
	if bump {
		s.version++
	}
	snap := plan.Snapshot{
		Version:   s.version,
		Now:       now,
		Rules:     ruleSet,
		Showings:  make(map[plan.ShowingID]plan.Showing, len(showings)),
		Tuners:    make(map[plan.TunerID]plan.Tuner, len(s.tuners)),
		Overrides: make(map[plan.ShowingID]plan.Status, len(s.override)),
	}
	for _, sh := range showings {
		snap.Showings[sh.ID] = sh
	}
	for id, t := range s.tuners {
		t.Offline = t.Offline || s.offline[id]
		snap.Tuners[id] = t
	}
	for id, st := range s.override {
		snap.Overrides[id] = st
	}
	for _, ls := range s.sessions {
		snap.LiveSessions = append(snap.LiveSessions, ls)
	}
	slices.SortFunc(snap.LiveSessions, func(a, b plan.LiveSession) int {
		return strings.Compare(a.ID, b.ID)
	})
	return snap, nil
}

// RunOnce executes one full planning cycle. Concurrent calls collapse into a
// single run. On error the previously published plan remains authoritative.
func (s *Scheduler) RunOnce(ctx context.Context, trigger string) (*plan.Plan, error) {
	result, err, _ := s.group.Do("cycle", func() (any, error) {
		return s.runCycle(ctx, trigger)
	})
	if err != nil {
		return nil, err
	}
	return result.(*plan.Plan), nil
}

func (s *Scheduler) runCycle(ctx context.Context, trigger string) (*plan.Plan, error) {
	started := s.clock.Now()
	cycleID := fmt.Sprintf("%d", started.UnixNano())
	ctx = log.ContextWithCycleID(ctx, cycleID)
	logger := log.WithComponentFromContext(ctx, "sched.cycle")

	snap, err := s.snapshot(ctx, true)
	if err != nil {
		metrics.RecordCycle(trigger, "collaborator_error", s.clock.Now().Sub(started))
		return nil, err
	}

	p, err := plan.Run(snap, s.deps, s.planCfg)
	if err != nil {
		// Contract violation inside the planner: fatal to the cycle, the
		// prior published set stays in place.
		logger.Error().Err(err).Str(log.FieldTrigger, trigger).Msg("planning cycle aborted")
		metrics.RecordCycle(trigger, "aborted", s.clock.Now().Sub(started))
		return nil, err
	}

	s.appendNotListed(p, snap)

	s.published.Store(p)
	s.persist(p)
	if s.backend != nil {
		if err := s.backend.Push(ctx, activeRecordings(p)); err != nil {
			// The backend applies assignments asynchronously; a failed push
			// is retried next cycle and never invalidates the plan.
			logger.Warn().Err(err).Msg("push to tuner backend failed")
		}
	}
	s.preempt.check(ctx, p)
	s.notifySubscribers(p)

	metrics.RecordCycle(trigger, "success", s.clock.Now().Sub(started))
	metrics.RecordPlan(p)

	logger.Info().
		Str(log.FieldTrigger, trigger).
		Uint64("snapshot_version", p.Version).
		Int("candidates", p.Report.Candidates).
		Int("will_record", p.Report.StatusCounts[plan.StatusWillRecord]).
		Int("conflicting", p.Report.StatusCounts[plan.StatusConflicting]).
		Int("reflows", p.Report.ReflowsSucceeded).
		Int64("duration_ms", s.clock.Now().Sub(started).Milliseconds()).
		Msg("planning cycle complete")
	return p, nil
}

// appendNotListed carries forward prior active recordings whose showings
// vanished from the listings window, so users see why they dropped out.
func (s *Scheduler) appendNotListed(p *plan.Plan, snap plan.Snapshot) {
	prev := s.published.Load()
	if prev == nil {
		return
	}
	for _, rec := range prev.Recordings {
		if !rec.Status.Active() {
			continue
		}
		if _, ok := snap.Showings[rec.ShowingID]; ok {
			continue
		}
		if rec.End.Before(snap.Now) {
			continue // aged out of the window normally
		}
		p.Recordings = append(p.Recordings, plan.Recording{
			ShowingID: rec.ShowingID,
			RuleID:    rec.RuleID,
			Status:    plan.StatusNotListed,
			Reason:    "showing no longer in listings",
			Start:     rec.Start,
			End:       rec.End,
			Priority:  rec.Priority,
		})
		p.Report.StatusCounts[plan.StatusNotListed]++
	}
	slices.SortFunc(p.Recordings, func(a, b plan.Recording) int {
		if !a.Start.Equal(b.Start) {
			if a.Start.Before(b.Start) {
				return -1
			}
			return 1
		}
		if a.ShowingID != b.ShowingID {
			return strings.Compare(string(a.ShowingID), string(b.ShowingID))
		}
		return strings.Compare(a.RuleID, b.RuleID)
	})
}

func activeRecordings(p *plan.Plan) []plan.Recording {
	var out []plan.Recording
	for _, rec := range p.Recordings {
		if rec.Status.Active() {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Scheduler) persist(p *plan.Plan) {
	if s.opts.DataDir == "" {
		return
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("encode published plan failed")
		return
	}
	path := filepath.Join(s.opts.DataDir, "schedule.json")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str(log.FieldPath, path).Msg("persist published plan failed")
	}
}

func (s *Scheduler) notifySubscribers(p *plan.Plan) {
	s.subMu.Lock()
	subs := append([]func(*plan.Plan){}, s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(p)
	}
}

// consumeEvents folds backend reports into scheduler state and triggers a
// replan. A tuner going away is an input change, not a crash.
func (s *Scheduler) consumeEvents(ctx context.Context) {
	if s.backend == nil {
		return
	}
	events := s.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Scheduler) handleEvent(ctx context.Context, ev tunerctl.Event) {
	logger := s.logger.With().
		Str("event", string(ev.Type)).
		Str(log.FieldTunerID, string(ev.TunerID)).
		Str(log.FieldShowingID, string(ev.ShowingID)).
		Logger()

	s.mu.Lock()
	switch ev.Type {
	case tunerctl.EventTunerOffline:
		s.offline[ev.TunerID] = true
	case tunerctl.EventTunerOnline:
		delete(s.offline, ev.TunerID)
	case tunerctl.EventRecordingFailed:
		s.override[ev.ShowingID] = plan.StatusFailed
	case tunerctl.EventRecordingAborted:
		s.override[ev.ShowingID] = plan.StatusAborted
	}
	s.mu.Unlock()

	if ev.Type == tunerctl.EventRecordingFinished && s.recorder != nil {
		entry := history.Entry{
			ShowingID:  ev.ShowingID,
			RuleID:     ev.RuleID,
			RecordedAt: ev.At,
		}
		if p := s.published.Load(); p != nil {
			if rec, ok := p.Lookup(ev.RuleID, ev.ShowingID); ok {
				entry.Start = rec.Start
				entry.End = rec.End
				entry.Title = rec.Title
				entry.ChannelID = rec.ChannelID
				entry.DedupKey = rec.DedupKey
			}
		}
		if err := s.recorder.MarkRecorded(ctx, entry); err != nil {
			logger.Error().Err(err).Msg("record finished recording failed")
		}
	}

	logger.Debug().Msg("tuner event folded into state")
	s.Trigger("tuner_event")
}

// SetShowingOverride pins a manual terminal status on a showing for all
// future cycles. Only user-facing refusals are accepted here; failure
// statuses arrive through backend events.
func (s *Scheduler) SetShowingOverride(id plan.ShowingID, st plan.Status) error {
	switch st {
	case plan.StatusDontRecord, plan.StatusCancelled:
	default:
		return fmt.Errorf("status %q cannot be set manually", st)
	}
	s.mu.Lock()
	s.override[id] = st
	s.mu.Unlock()
	s.Trigger("override")
	return nil
}

// ClearShowingOverride removes a manual or event-sourced override.
func (s *Scheduler) ClearShowingOverride(id plan.ShowingID) {
	s.mu.Lock()
	delete(s.override, id)
	s.mu.Unlock()
	s.Trigger("override")
}

// SetLiveSession registers a live viewing session occupying a tuner.
func (s *Scheduler) SetLiveSession(ls plan.LiveSession) {
	s.mu.Lock()
	s.sessions[ls.ID] = ls
	s.mu.Unlock()
	s.Trigger("live_session")
}

// EndLiveSession removes a live viewing session.
func (s *Scheduler) EndLiveSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.Trigger("live_session")
}

func (s *Scheduler) loop(ctx context.Context) {
	s.logger.Info().Msg("scheduler started")

	timer := s.clock.NewTimer(s.nextDuration(true))
	defer timer.Stop()

	run := func(trigger string) {
		if _, err := s.RunOnce(ctx, trigger); err != nil {
			s.logger.Error().Err(err).Str(log.FieldTrigger, trigger).Msg("cycle failed, backing off")
			s.increaseBackoff()
		} else {
			s.resetBackoff()
		}
		timer.Reset(s.nextDuration(false))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping")
			return
		case <-timer.C():
			run("interval")
		case reason := <-s.kick:
			run(reason)
		}
	}
}

func (s *Scheduler) nextDuration(isFirst bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isFirst {
		return s.opts.StartupDelay + s.jitterDuration()
	}
	interval := s.interval
	if interval == 0 {
		interval = s.opts.BaseInterval
	}
	return interval + s.jitterDuration()
}

func (s *Scheduler) jitterDuration() time.Duration {
	if s.opts.Jitter == 0 {
		return 0
	}
	ms := int64(s.opts.Jitter / time.Millisecond)
	delta := rand.Int63n(ms*2) - ms
	return time.Duration(delta) * time.Millisecond
}

func (s *Scheduler) increaseBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval == 0 {
		s.interval = s.opts.BaseInterval
	}
	s.interval *= 2
	if s.interval > s.opts.MaxInterval {
		s.interval = s.opts.MaxInterval
	}
	s.logger.Info().Str("next_interval", s.interval.String()).Msg("increased backoff")
}

func (s *Scheduler) resetBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval != 0 && s.interval != s.opts.BaseInterval {
		s.logger.Info().Str("next_interval", s.opts.BaseInterval.String()).Msg("reset backoff")
	}
	s.interval = s.opts.BaseInterval
}
