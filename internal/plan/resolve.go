// SPDX-License-Identifier: MIT

package plan

import (
	"fmt"
	"slices"
	"strings"
)

const liveOwnerPrefix = "live:"

// resolver carries the working state of one conflict-resolution pass.
type resolver struct {
	snap      Snapshot
	cfg       Config
	deps      Deps
	resources *Resources

	// result holds exactly one outcome per candidate.
	result map[candKey]Recording
	// assigned tracks committed placements by owning showing.
	assigned map[ShowingID]*assignment
	// reflowed marks recordings already displaced once this cycle.
	reflowed map[ShowingID]bool

	reflowsAttempted int
	reflowsSucceeded int
}

type assignment struct {
	Cand     Candidate
	TunerID  TunerID
	Interval Interval
}

// seed assigns terminal statuses that remove candidates from consideration:
// never-record and inactive rules, external overrides, already-recorded and
// missed showings. It returns the surviving candidates.
func (rv *resolver) seed(cands []Candidate) []Candidate {
	neverBy := make(map[ShowingID]string)
	for _, rid := range sortedKeys(rv.snap.Rules) {
		r := rv.snap.Rules[rid]
		if r.Kind == KindNeverRecord && r.Active {
			if _, taken := neverBy[r.ShowingID]; !taken {
				neverBy[r.ShowingID] = rid
			}
		}
	}

	var live []Candidate
	for _, c := range cands {
		r := rv.snap.Rules[c.RuleID]
		s := rv.snap.Showings[c.ShowingID]
		iv := PaddedInterval(r, s)
		switch {
		case !r.Active:
			rv.finish(c, Recording{Status: StatusInactive, Reason: "rule disabled"}, iv)
		case r.Kind == KindNeverRecord:
			rv.finish(c, Recording{Status: StatusNeverRecord}, iv)
		case neverBy[c.ShowingID] != "":
			rv.finish(c, Recording{
				Status: StatusNeverRecord,
				Reason: fmt.Sprintf("excluded by rule %s", neverBy[c.ShowingID]),
			}, iv)
		case rv.snap.Overrides[c.ShowingID] != "":
			rv.finish(c, Recording{
				Status: rv.snap.Overrides[c.ShowingID],
				Reason: "externally reported",
			}, iv)
		case rv.deps.History != nil && rv.deps.History.ShowingRecorded(c.ShowingID):
			rv.finish(c, Recording{Status: StatusRecorded}, iv)
		case !s.End.After(rv.snap.Now):
			rv.finish(c, Recording{Status: StatusMissed, Reason: "showing is in the past"}, iv)
		default:
			live = append(live, c)
		}
	}
	return live
}

// blockLiveSessions reserves the tuners held by live viewing sessions when
// preemption is disabled, so planned recordings cannot claim them.
func (rv *resolver) blockLiveSessions() error {
	if rv.cfg.PreemptLive {
		return nil
	}
	sessions := slices.Clone(rv.snap.LiveSessions)
	slices.SortFunc(sessions, func(a, b LiveSession) int { return strings.Compare(a.ID, b.ID) })
	for _, ls := range sessions {
		if _, ok := rv.snap.Tuners[ls.TunerID]; !ok {
			continue
		}
		iv := Interval{Start: rv.snap.Now, End: rv.snap.Now.Add(liveSessionHold)}
		if !rv.resources.CanReserve(ls.TunerID, iv) {
			continue
		}
		if err := rv.resources.Reserve(ls.TunerID, iv, ShowingID(liveOwnerPrefix+ls.ID)); err != nil {
			return err
		}
	}
	return nil
}

// place runs the greedy placement pass over the sorted candidates.
func (rv *resolver) place(cands []Candidate, dd *dedupResult) error {
	perRule := make(map[string]int)
	for _, c := range cands {
		if err := rv.placeOne(c, dd, perRule, true); err != nil {
			return err
		}
	}
	return nil
}

// placeOne attempts to place a single candidate, reflowing and falling back
// to dedup-group alternates when allowed.
func (rv *resolver) placeOne(c Candidate, dd *dedupResult, perRule map[string]int, allowFallback bool) error {
	r := rv.snap.Rules[c.RuleID]
	s := rv.snap.Showings[c.ShowingID]
	iv := PaddedInterval(r, s)

	if r.MaxEpisodes > 0 && perRule[c.RuleID] >= r.MaxEpisodes {
		rv.finish(c, Recording{
			Status: StatusTooManyRecordings,
			Reason: fmt.Sprintf("rule keeps at most %d episodes", r.MaxEpisodes),
		}, iv)
		return nil
	}
	if rv.cfg.MaxConcurrent > 0 && rv.overlapAssigned(iv) >= rv.cfg.MaxConcurrent {
		rv.finish(c, Recording{
			Status: StatusTooManyRecordings,
			Reason: fmt.Sprintf("more than %d simultaneous recordings", rv.cfg.MaxConcurrent),
		}, iv)
		return nil
	}

	tuners := rv.tunerOrder(r, s.ChannelID)
	if len(tuners) == 0 {
		if len(rv.resources.CapableTuners(s.ChannelID)) > 0 {
			rv.finish(c, Recording{Status: StatusRecorderOffline, Reason: "all capable tuners offline"}, iv)
		} else {
			rv.finish(c, Recording{Status: StatusConflicting, Reason: "no tuner can receive channel"}, iv)
		}
		return nil
	}

	for _, tid := range tuners {
		if !rv.resources.CanReserve(tid, iv) {
			continue
		}
		if err := rv.commit(c, tid, iv, perRule); err != nil {
			return err
		}
		return nil
	}

	// Every capable input group is occupied: attempt a one-hop reflow of a
	// strictly lower-priority assigned recording.
	placedTuner, err := rv.reflow(c, iv, tuners)
	if err != nil {
		return err
	}
	if placedTuner != "" {
		return rv.commit(c, placedTuner, iv, perRule)
	}

	if allowFallback {
		ok, err := rv.fallback(c, dd, perRule)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	if rv.blockedByLive(iv, tuners) {
		rv.finish(c, Recording{Status: StatusTunerBusy, Reason: "tuner held by live viewing session"}, iv)
		return nil
	}
	rv.finish(c, Recording{Status: StatusConflicting, Reason: "no tuner available"}, iv)
	return nil
}

// tunerOrder returns the candidate tuners with the rule's preferred tuner
// moved to the front when capable.
func (rv *resolver) tunerOrder(r Rule, ch ChannelID) []TunerID {
	tuners := rv.resources.CandidateTuners(ch)
	if r.PreferredTuner == "" {
		return tuners
	}
	for i, tid := range tuners {
		if tid == r.PreferredTuner {
			return append([]TunerID{tid}, slices.Delete(slices.Clone(tuners), i, i+1)...)
		}
	}
	return tuners
}

func (rv *resolver) commit(c Candidate, tid TunerID, iv Interval, perRule map[string]int) error {
	if err := rv.resources.Reserve(tid, iv, c.ShowingID); err != nil {
		return err
	}
	s := rv.snap.Showings[c.ShowingID]
	status := StatusWillRecord
	if !rv.snap.Now.Before(iv.Start) && rv.snap.Now.Before(s.End) {
		status = StatusRecording
	}
	rv.assigned[c.ShowingID] = &assignment{Cand: c, TunerID: tid, Interval: iv}
	perRule[c.RuleID]++
	rv.finish(c, Recording{Status: status, TunerID: tid}, iv)
	return nil
}

// reflow tries to free one of the candidate's capable tuners by re-homing a
// single strictly-lower-priority assigned recording onto a different input
// group. Each displaced recording is attempted at most once per cycle, and
// displacement never chains.
func (rv *resolver) reflow(c Candidate, iv Interval, tuners []TunerID) (TunerID, error) {
	type option struct {
		Tuner   TunerID
		Blocker *assignment
	}
	var opts []option
	for _, tid := range tuners {
		blockers := rv.resources.Blocking(tid, iv)
		if len(blockers) != 1 {
			continue
		}
		a, ok := rv.assigned[blockers[0]]
		if !ok || rv.reflowed[blockers[0]] {
			continue // live session, or already displaced this cycle
		}
		if a.Cand.Priority >= c.Priority {
			continue
		}
		opts = append(opts, option{Tuner: tid, Blocker: a})
	}
	// Displace the lowest-priority blocker first.
	slices.SortStableFunc(opts, func(a, b option) int {
		if a.Blocker.Cand.Priority != b.Blocker.Cand.Priority {
			return a.Blocker.Cand.Priority - b.Blocker.Cand.Priority
		}
		return strings.Compare(string(a.Tuner), string(b.Tuner))
	})

	for _, opt := range opts {
		b := opt.Blocker
		rv.reflowed[b.Cand.ShowingID] = true
		rv.reflowsAttempted++

		if err := rv.resources.Release(b.TunerID, b.Cand.ShowingID); err != nil {
			return "", err
		}
		home := rv.rehome(b, opt.Tuner)
		if home == "" {
			// Put the blocker back where it was.
			if err := rv.resources.Reserve(b.TunerID, b.Interval, b.Cand.ShowingID); err != nil {
				return "", err
			}
			continue
		}
		if err := rv.resources.Reserve(home, b.Interval, b.Cand.ShowingID); err != nil {
			return "", err
		}
		rv.reflowsSucceeded++
		b.TunerID = home
		rec := rv.result[candKey{Rule: b.Cand.RuleID, Showing: b.Cand.ShowingID}]
		rec.TunerID = home
		rv.result[candKey{Rule: b.Cand.RuleID, Showing: b.Cand.ShowingID}] = rec
		return opt.Tuner, nil
	}
	return "", nil
}

// rehome finds a new tuner for a displaced recording outside the freed input
// group.
func (rv *resolver) rehome(b *assignment, freed TunerID) TunerID {
	freedGroup := rv.snap.Tuners[freed].InputGroup
	ch := rv.snap.Showings[b.Cand.ShowingID].ChannelID
	for _, tid := range rv.resources.CandidateTuners(ch) {
		if rv.snap.Tuners[tid].InputGroup == freedGroup {
			continue
		}
		if rv.resources.CanReserve(tid, b.Interval) {
			return tid
		}
	}
	return ""
}

// fallback tries the dedup-group alternates of a representative that could
// not be placed. On success the representative is marked with the earlier or
// later showing status and suppressed siblings are re-pointed at the winner.
func (rv *resolver) fallback(c Candidate, dd *dedupResult, perRule map[string]int) (bool, error) {
	alts := dd.alternates[candKey{Rule: c.RuleID, Showing: c.ShowingID}]
	repShowing := rv.snap.Showings[c.ShowingID]
	r := rv.snap.Rules[c.RuleID]

	for _, alt := range alts {
		if err := rv.placeOne(alt, dd, perRule, false); err != nil {
			return false, err
		}
		rec := rv.result[candKey{Rule: alt.RuleID, Showing: alt.ShowingID}]
		if !rec.Status.Active() {
			// This alternate conflicts too; its recorded outcome stands.
			continue
		}
		altShowing := rv.snap.Showings[alt.ShowingID]
		status := StatusLaterShowing
		if altShowing.Start.Before(repShowing.Start) {
			status = StatusEarlierShowing
		}
		rv.finish(c, Recording{
			Status:         status,
			OtherShowingID: alt.ShowingID,
			Reason:         "conflict resolved by another showing of this episode",
		}, PaddedInterval(r, repShowing))
		dd.repoint(c.RuleID, c.ShowingID, alt.ShowingID)
		return true, nil
	}
	return false, nil
}

// overlapAssigned counts committed recordings overlapping the interval. Live
// session holds are not recordings and do not count.
func (rv *resolver) overlapAssigned(iv Interval) int {
	n := 0
	for _, sid := range sortedKeys(rv.assigned) {
		if rv.assigned[sid].Interval.Overlaps(iv) {
			n++
		}
	}
	return n
}

func (rv *resolver) blockedByLive(iv Interval, tuners []TunerID) bool {
	for _, tid := range tuners {
		for _, owner := range rv.resources.Blocking(tid, iv) {
			if strings.HasPrefix(string(owner), liveOwnerPrefix) {
				return true
			}
		}
	}
	return false
}

// postPass downgrades assigned recordings whose storage signal reports
// insufficient space. Offline tuners are already handled during placement.
func (rv *resolver) postPass() error {
	if rv.deps.FreeSpace == nil || rv.cfg.MinFreeBytes <= 0 {
		return nil
	}
	for _, sid := range sortedKeys(rv.assigned) {
		a := rv.assigned[sid]
		r := rv.snap.Rules[a.Cand.RuleID]
		if rv.deps.FreeSpace(r.StorageGroup) >= rv.cfg.MinFreeBytes {
			continue
		}
		if err := rv.resources.Release(a.TunerID, sid); err != nil {
			return err
		}
		delete(rv.assigned, sid)
		rv.finish(a.Cand, Recording{
			Status: StatusLowDiskSpace,
			Reason: fmt.Sprintf("storage group %q below headroom", r.StorageGroup),
		}, a.Interval)
	}
	return nil
}

// finish records the terminal outcome for a candidate, filling in the shared
// fields.
func (rv *resolver) finish(c Candidate, rec Recording, iv Interval) {
	rec.ShowingID = c.ShowingID
	rec.RuleID = c.RuleID
	rec.Priority = c.Priority
	rec.Start = iv.Start
	rec.End = iv.End
	r := rv.snap.Rules[c.RuleID]
	s := rv.snap.Showings[c.ShowingID]
	rec.Title = s.Title
	rec.ChannelID = s.ChannelID
	rec.DedupKey = DedupKey(r.DedupPolicy, s)
	rv.result[candKey{Rule: c.RuleID, Showing: c.ShowingID}] = rec
}

// repoint updates suppressions that referenced the failed representative so
// they reference the promoted alternate instead.
func (dd *dedupResult) repoint(ruleID string, from, to ShowingID) {
	for i := range dd.suppressed {
		sp := &dd.suppressed[i]
		if sp.Cand.RuleID == ruleID && sp.Other == from && sp.Cand.ShowingID != to {
			sp.Other = to
		}
	}
}
