// SPDX-License-Identifier: MIT

package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/metrics"
	"github.com/svoss/recplan/internal/plan"
)

// PromptFunc asks a live viewing session whether it yields its tuner to an
// imminent recording. It must return within the configured timeout; a
// timeout or error counts as "no answer" and the recording wins.
type PromptFunc func(ctx context.Context, session plan.LiveSession, rec plan.Recording) (yield bool, err error)

// preemptor reclaims tuners from live sessions shortly before a planned
// recording needs them. The fail-safe is fixed: when a session does not
// answer in time, the recording wins.
type preemptor struct {
	sched   *Scheduler
	warn    time.Duration
	timeout time.Duration
	logger  zerolog.Logger

	prompt PromptFunc
	// warned tracks sessions already prompted for a given showing so a
	// session is not nagged once per cycle.
	warned map[string]plan.ShowingID
}

func newPreemptor(s *Scheduler, warn, timeout time.Duration) *preemptor {
	return &preemptor{
		sched:   s,
		warn:    warn,
		timeout: timeout,
		logger:  log.WithComponent("sched.preempt"),
		warned:  make(map[string]plan.ShowingID),
	}
}

// SetPromptFunc installs the callback used to warn live sessions before
// their tuner is reclaimed. Without one, sessions are reclaimed silently.
func (s *Scheduler) SetPromptFunc(fn PromptFunc) {
	s.preempt.prompt = fn
}

// check walks the plan for recordings starting within the warning lead whose
// tuner a live session occupies, and resolves each collision.
func (p *preemptor) check(ctx context.Context, pl *plan.Plan) {
	if !p.sched.planCfg.PreemptLive {
		return
	}
	now := p.sched.clock.Now()
	deadline := now.Add(p.warn)

	p.sched.mu.Lock()
	sessions := make(map[plan.TunerID]plan.LiveSession, len(p.sched.sessions))
	for _, ls := range p.sched.sessions {
		sessions[ls.TunerID] = ls
	}
	p.sched.mu.Unlock()
	if len(sessions) == 0 {
		return
	}

	for _, rec := range pl.Recordings {
		if !rec.Status.Active() || rec.TunerID == "" {
			continue
		}
		if rec.Start.After(deadline) {
			continue
		}
		ls, busy := sessions[rec.TunerID]
		if !busy {
			continue
		}
		if p.warned[ls.ID] == rec.ShowingID {
			continue
		}
		p.warned[ls.ID] = rec.ShowingID
		go p.resolve(ctx, ls, rec)
	}
}

func (p *preemptor) resolve(ctx context.Context, ls plan.LiveSession, rec plan.Recording) {
	logger := p.logger.With().
		Str("session_id", ls.ID).
		Str(log.FieldTunerID, string(ls.TunerID)).
		Str(log.FieldShowingID, string(rec.ShowingID)).
		Logger()

	yielded := false
	if p.prompt != nil {
		promptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		ok, err := p.prompt(promptCtx, ls, rec)
		if err != nil {
			logger.Warn().Err(err).Msg("live session did not answer preemption prompt")
		}
		yielded = ok && err == nil
	}

	if yielded {
		p.sched.EndLiveSession(ls.ID)
		metrics.RecordPreemption(true)
		logger.Info().Msg("live session yielded tuner to recording")
		return
	}

	// The session keeps the tuner until the recording actually needs it;
	// the prompt is a warning, not the eviction.
	if wait := rec.Start.Sub(p.sched.clock.Now()); wait > 0 {
		timer := p.sched.clock.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C():
		}
	}
	p.sched.EndLiveSession(ls.ID)
	metrics.RecordPreemption(false)
	logger.Info().Msg("live session preempted, recording wins")
}
