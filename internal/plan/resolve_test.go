// SPDX-License-Identifier: MIT

package plan

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func onePerShowing(t *testing.T, p *Plan) map[ShowingID]Recording {
	t.Helper()
	out := make(map[ShowingID]Recording)
	for _, rec := range p.Recordings {
		_, dup := out[rec.ShowingID]
		require.False(t, dup, "expected a single outcome per showing in this fixture")
		out[rec.ShowingID] = rec
	}
	return out
}

// assertNoGroupOverlap checks the input-group invariant over a finished plan.
func assertNoGroupOverlap(t *testing.T, snap Snapshot, p *Plan) {
	t.Helper()
	type placed struct {
		iv    Interval
		group InputGroupID
	}
	var all []placed
	for _, rec := range p.Recordings {
		if !rec.Status.Active() {
			continue
		}
		tuner, ok := snap.Tuners[rec.TunerID]
		require.True(t, ok, "active recording without a known tuner")
		all = append(all, placed{iv: Interval{Start: rec.Start, End: rec.End}, group: tuner.InputGroup})
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].group != all[j].group {
				continue
			}
			assert.False(t, all[i].iv.Overlaps(all[j].iv), "overlapping recordings in one input group")
		}
	}
}

func TestRun_PriorityWinsSingleTuner(t *testing.T) {
	// Two rules, same channel, overlapping 30-minute showings, one tuner.
	rules := []Rule{
		{ID: "r-hi", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 5},
		{ID: "r-lo", Kind: KindAll, Title: "Beta", Active: true, BasePriority: 2},
	}
	showings := []Showing{
		showingAt("s-alpha", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s-beta", "ch1", planNow.Add(time.Hour+15*time.Minute), 30*time.Minute, "Beta"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s-alpha"].Status)
	assert.Equal(t, TunerID("t1"), recs["s-alpha"].TunerID)
	assert.Equal(t, StatusConflicting, recs["s-beta"].Status)
	assert.Empty(t, recs["s-beta"].TunerID)
	assertNoGroupOverlap(t, snap, p)
}

func TestRun_RecordingsCarryEpisodeIdentity(t *testing.T) {
	rules := []Rule{{
		ID: "r1", Kind: KindAll, Title: "Alpha", Active: true,
		DedupPolicy: DedupSubtitleOnly,
	}}
	s := showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha")
	s.Subtitle = "Episode 12"
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, []Showing{s}, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	rec, ok := p.Lookup("r1", "s1")
	require.True(t, ok)
	assert.Equal(t, StatusWillRecord, rec.Status)
	assert.Equal(t, "Alpha", rec.Title)
	assert.Equal(t, ChannelID("ch1"), rec.ChannelID)
	assert.Equal(t, DedupKey(DedupSubtitleOnly, s), rec.DedupKey)
	assert.NotEmpty(t, rec.DedupKey)
}

func TestRun_SecondInputGroupResolvesConflict(t *testing.T) {
	rules := []Rule{
		{ID: "r-hi", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 5},
		{ID: "r-lo", Kind: KindAll, Title: "Beta", Active: true, BasePriority: 2},
	}
	showings := []Showing{
		showingAt("s-alpha", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s-beta", "ch1", planNow.Add(time.Hour+15*time.Minute), 30*time.Minute, "Beta"),
	}
	tuners := []Tuner{
		{ID: "t1", InputGroup: "g1"},
		{ID: "t2", InputGroup: "g2"},
	}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s-alpha"].Status)
	assert.Equal(t, StatusWillRecord, recs["s-beta"].Status)
	assert.NotEqual(t, recs["s-alpha"].TunerID, recs["s-beta"].TunerID)
	assertNoGroupOverlap(t, snap, p)
}

func TestRun_FindOneRecordsEarliestOnly(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindFindOne, Title: "Nova", Active: true}}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(2*time.Hour), 30*time.Minute, "Nova"),
		showingAt("s2", "ch1", planNow.Add(26*time.Hour), 30*time.Minute, "Nova"),
		showingAt("s3", "ch1", planNow.Add(50*time.Hour), 30*time.Minute, "Nova"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s1"].Status)
	assert.Equal(t, StatusOtherShowing, recs["s2"].Status)
	assert.Equal(t, ShowingID("s1"), recs["s2"].OtherShowingID)
	assert.Equal(t, StatusOtherShowing, recs["s3"].Status)
	assert.Equal(t, ShowingID("s1"), recs["s3"].OtherShowingID)
}

func TestRun_ReflowDisplacesLowerPriority(t *testing.T) {
	// The single-showing rule places Beta on t1 first (kind precedence).
	// Alpha's channel is only receivable by t1, so placing Alpha must reflow
	// Beta onto t2.
	rules := []Rule{
		{ID: "r-beta", Kind: KindSingle, ShowingID: "s-beta", Active: true, BasePriority: 1},
		{ID: "r-alpha", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 10},
	}
	showings := []Showing{
		showingAt("s-beta", "ch-both", planNow.Add(time.Hour), 30*time.Minute, "Beta"),
		showingAt("s-alpha", "ch-only-t1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
	}
	tuners := []Tuner{
		{ID: "t1", InputGroup: "g1", InputPriority: 10, Channels: []ChannelID{"ch-both", "ch-only-t1"}},
		{ID: "t2", InputGroup: "g2", InputPriority: 1, Channels: []ChannelID{"ch-both"}},
	}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s-alpha"].Status)
	assert.Equal(t, TunerID("t1"), recs["s-alpha"].TunerID)
	assert.Equal(t, StatusWillRecord, recs["s-beta"].Status)
	assert.Equal(t, TunerID("t2"), recs["s-beta"].TunerID, "displaced recording re-homed")
	assert.Equal(t, 1, p.Report.ReflowsSucceeded)
	assertNoGroupOverlap(t, snap, p)
}

func TestRun_ReflowNeverHelpsEqualPriority(t *testing.T) {
	rules := []Rule{
		{ID: "r-beta", Kind: KindSingle, ShowingID: "s-beta", Active: true, BasePriority: 10},
		{ID: "r-alpha", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 10},
	}
	showings := []Showing{
		showingAt("s-beta", "ch-both", planNow.Add(time.Hour), 30*time.Minute, "Beta"),
		showingAt("s-alpha", "ch-only-t1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
	}
	tuners := []Tuner{
		{ID: "t1", InputGroup: "g1", InputPriority: 10, Channels: []ChannelID{"ch-both", "ch-only-t1"}},
		{ID: "t2", InputGroup: "g2", InputPriority: 1, Channels: []ChannelID{"ch-both"}},
	}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	// Displacement requires strictly lower priority, so Alpha conflicts.
	assert.Equal(t, StatusWillRecord, recs["s-beta"].Status)
	assert.Equal(t, StatusConflicting, recs["s-alpha"].Status)
	assert.Equal(t, 0, p.Report.ReflowsSucceeded)
}

func TestRun_ConflictFallsBackToLaterShowing(t *testing.T) {
	// The representative showing conflicts with a higher-priority recording,
	// but a later airing of the same episode fits.
	rules := []Rule{
		{ID: "r-hi", Kind: KindSingle, ShowingID: "s-block", Active: true, BasePriority: 10},
		{ID: "r-nova", Kind: KindAll, Title: "Nova", Active: true, BasePriority: 1,
			DedupPolicy: DedupSubtitleOnly, DedupScope: ScopeBoth},
	}
	blocked := showingAt("s-block", "ch1", planNow.Add(time.Hour), time.Hour, "Blocker")
	first := episodeShowing("s-n1", "ch1", planNow.Add(time.Hour), "Nova", "The Deep")
	second := episodeShowing("s-n2", "ch1", planNow.Add(5*time.Hour), "Nova", "The Deep")
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, []Showing{blocked, first, second}, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s-block"].Status)
	assert.Equal(t, StatusLaterShowing, recs["s-n1"].Status)
	assert.Equal(t, ShowingID("s-n2"), recs["s-n1"].OtherShowingID)
	assert.Equal(t, StatusWillRecord, recs["s-n2"].Status)
}

func TestRun_SeedStatuses(t *testing.T) {
	rules := []Rule{
		{ID: "r-inactive", Kind: KindAll, Title: "Idle", Active: false},
		{ID: "r-never", Kind: KindNeverRecord, ShowingID: "s-never", Active: true},
		{ID: "r-all", Kind: KindAll, Title: "Never Twice", Active: true},
		{ID: "r-past", Kind: KindAll, Title: "Gone", Active: true},
		{ID: "r-done", Kind: KindAll, Title: "Done", Active: true},
	}
	showings := []Showing{
		showingAt("s-idle", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Idle"),
		showingAt("s-never", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Never Twice"),
		showingAt("s-past", "ch1", planNow.Add(-2*time.Hour), 30*time.Minute, "Gone"),
		showingAt("s-done", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Done"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	hist := &fakeHistory{showings: map[ShowingID]bool{"s-done": true}}
	p, err := Run(snap, Deps{History: hist}, DefaultConfig())
	require.NoError(t, err)

	get := func(rule string, sid ShowingID) Recording {
		rec, ok := p.Lookup(rule, sid)
		require.True(t, ok, "missing outcome for %s/%s", rule, sid)
		return rec
	}
	assert.Equal(t, StatusInactive, get("r-inactive", "s-idle").Status)
	assert.Equal(t, StatusNeverRecord, get("r-never", "s-never").Status)
	// The catch-all rule on the same showing is excluded by the never rule.
	assert.Equal(t, StatusNeverRecord, get("r-all", "s-never").Status)
	assert.Equal(t, StatusMissed, get("r-past", "s-past").Status)
	assert.Equal(t, StatusRecorded, get("r-done", "s-done").Status)
}

func TestRun_ExternalOverrides(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true}}
	showings := []Showing{showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha")}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)
	snap.Overrides = map[ShowingID]Status{"s1": StatusDontRecord}

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusDontRecord, recs["s1"].Status)
}

func TestRun_RecordingStatusForAiringShowing(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true}}
	showings := []Showing{showingAt("s1", "ch1", planNow.Add(-10*time.Minute), time.Hour, "Alpha")}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusRecording, recs["s1"].Status)
}

func TestRun_RecorderOfflineAndUnreceivable(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true},
		{ID: "r2", Kind: KindAll, Title: "Beta", Active: true},
	}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s2", "ch-none", planNow.Add(time.Hour), 30*time.Minute, "Beta"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1", Channels: []ChannelID{"ch1"}, Offline: true}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusRecorderOffline, recs["s1"].Status)
	assert.Equal(t, StatusConflicting, recs["s2"].Status)
}

func TestRun_TooManyRecordings(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true, DedupPolicy: DedupNone}}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s2", "ch2", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
	}
	tuners := []Tuner{
		{ID: "t1", InputGroup: "g1"},
		{ID: "t2", InputGroup: "g2"},
	}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	p, err := Run(snap, Deps{History: &fakeHistory{}}, cfg)
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	statuses := []Status{recs["s1"].Status, recs["s2"].Status}
	assert.Contains(t, statuses, StatusWillRecord)
	assert.Contains(t, statuses, StatusTooManyRecordings)
}

func TestRun_MaxEpisodesPerRule(t *testing.T) {
	rules := []Rule{{
		ID: "r1", Kind: KindAll, Title: "Alpha", Active: true,
		DedupPolicy: DedupNone, MaxEpisodes: 1,
	}}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s2", "ch1", planNow.Add(3*time.Hour), 30*time.Minute, "Alpha"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s1"].Status)
	assert.Equal(t, StatusTooManyRecordings, recs["s2"].Status)
}

func TestRun_LowDiskSpaceDowngrade(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true, StorageGroup: "sg1"}}
	showings := []Showing{showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha")}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	deps := Deps{
		History:   &fakeHistory{},
		FreeSpace: func(group string) int64 { return 0 },
	}
	p, err := Run(snap, deps, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusLowDiskSpace, recs["s1"].Status)
	assert.Empty(t, recs["s1"].TunerID)
}

func TestRun_LiveSessionBlocksWhenPreemptionDisabled(t *testing.T) {
	rules := []Rule{{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true}}
	showings := []Showing{showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha")}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)
	snap.LiveSessions = []LiveSession{{ID: "viewer", TunerID: "t1", Since: planNow}}

	cfg := DefaultConfig()
	cfg.PreemptLive = false
	p, err := Run(snap, Deps{History: &fakeHistory{}}, cfg)
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusTunerBusy, recs["s1"].Status)

	// With preemption enabled the recording wins.
	cfg.PreemptLive = true
	p, err = Run(snap, Deps{History: &fakeHistory{}}, cfg)
	require.NoError(t, err)
	recs = onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s1"].Status)
}

func TestRun_RejectsMalformedInputsAndProceeds(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true},
		{ID: "r-bad", Kind: "mystery", Active: true},
	}
	good := showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha")
	bad := showingAt("s-bad", "ch1", planNow.Add(time.Hour), -30*time.Minute, "Alpha")
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, []Showing{good, bad}, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	recs := onePerShowing(t, p)
	assert.Equal(t, StatusWillRecord, recs["s1"].Status)
	assert.NotContains(t, recs, ShowingID("s-bad"))
	assert.Len(t, p.Report.Rejected, 2)
}

func TestRun_Determinism(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 3},
		{ID: "r2", Kind: KindAll, Title: "Beta", Active: true, BasePriority: 3},
		{ID: "r3", Kind: KindFindOne, Title: "Gamma", Active: true, BasePriority: 7},
	}
	var showings []Showing
	titles := []string{"Alpha", "Beta", "Gamma"}
	for i := 0; i < 12; i++ {
		showings = append(showings, showingAt(
			string(rune('a'+i)), "ch1",
			planNow.Add(time.Duration(30*i)*time.Minute), 45*time.Minute,
			titles[i%3],
		))
	}
	tuners := []Tuner{
		{ID: "t1", InputGroup: "g1"},
		{ID: "t2", InputGroup: "g1"},
		{ID: "t3", InputGroup: "g2"},
	}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	first, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)
	second, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second), "identical input must produce identical plans")
	assertNoGroupOverlap(t, snap, first)
}

func TestRun_StabilityUnderNewShowing(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true, BasePriority: 5},
		{ID: "r2", Kind: KindAll, Title: "Beta", Active: true, BasePriority: 2},
	}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s2", "ch1", planNow.Add(2*time.Hour), 30*time.Minute, "Beta"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}, {ID: "t2", InputGroup: "g2"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	before, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	// A new non-conflicting showing must not change pre-existing outcomes.
	grown := snap.Clone()
	grown.Rules["r3"] = Rule{ID: "r3", Kind: KindAll, Title: "Gamma", Active: true}
	grown.Showings["s3"] = showingAt("s3", "ch1", planNow.Add(5*time.Hour), 30*time.Minute, "Gamma")

	after, err := Run(grown, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	for _, rec := range before.Recordings {
		got, ok := after.Lookup(rec.RuleID, rec.ShowingID)
		require.True(t, ok)
		assert.Equal(t, rec.Status, got.Status, "status churn for %s", rec.ShowingID)
		assert.Equal(t, rec.TunerID, got.TunerID, "tuner churn for %s", rec.ShowingID)
	}
}

func TestRun_EveryCandidateGetsExactlyOneOutcome(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Kind: KindAll, Title: "Alpha", Active: true},
		{ID: "r2", Kind: KindSingle, ShowingID: "s1", Active: true},
	}
	showings := []Showing{
		showingAt("s1", "ch1", planNow.Add(time.Hour), 30*time.Minute, "Alpha"),
		showingAt("s2", "ch1", planNow.Add(3*time.Hour), 30*time.Minute, "Alpha"),
	}
	tuners := []Tuner{{ID: "t1", InputGroup: "g1"}}
	snap := buildSnapshot(planNow, rules, showings, tuners)

	p, err := Run(snap, Deps{History: &fakeHistory{}}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, p.Report.Candidates, len(p.Recordings))
	seen := make(map[candKey]bool)
	for _, rec := range p.Recordings {
		key := candKey{Rule: rec.RuleID, Showing: rec.ShowingID}
		assert.False(t, seen[key], "duplicate outcome for %v", key)
		seen[key] = true
		assert.True(t, rec.Status.Valid())
		assert.NotEqual(t, StatusUnknown, rec.Status)
	}
}
