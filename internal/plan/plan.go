// SPDX-License-Identifier: MIT

package plan

import (
	"slices"
	"strings"
	"time"
)

// liveSessionHold is how far ahead a live viewing session blocks its tuner
// when preemption is disabled.
const liveSessionHold = 12 * time.Hour

// FreeSpaceFunc reports the free bytes available to a storage group. Supplied
// by an external collaborator.
type FreeSpaceFunc func(storageGroup string) int64

// Deps are the external collaborators consulted during a planning pass. All
// of them must be read-only for the duration of the pass.
type Deps struct {
	History   History
	Query     QueryFunc
	FreeSpace FreeSpaceFunc
}

// Report summarises one planning pass. Bounded and explainable, in the spirit
// of a run report.
type Report struct {
	SnapshotVersion  uint64         `json:"snapshot_version"`
	Candidates       int            `json:"candidates"`
	StatusCounts     map[Status]int `json:"status_counts"`
	ReflowsAttempted int            `json:"reflows_attempted"`
	ReflowsSucceeded int            `json:"reflows_succeeded"`
	Rejected         []Diagnostic   `json:"rejected,omitempty"`
}

// Plan is the atomic output of one planning pass: the full resolved recording
// set plus its report. GeneratedAt mirrors the snapshot clock so identical
// inputs produce identical plans.
type Plan struct {
	Version     uint64      `json:"version"`
	GeneratedAt time.Time   `json:"generated_at"`
	Recordings  []Recording `json:"recordings"`
	Report      Report      `json:"report"`
}

// Run executes one full planning pass over the snapshot: validation, rule
// matching, deduplication, conflict resolution and post-pass downgrades.
// Every candidate receives exactly one terminal status. The only returned
// errors are resource-model contract violations, which are fatal to the
// cycle; callers must then keep the previously published plan authoritative.
func Run(snap Snapshot, deps Deps, cfg Config) (*Plan, error) {
	clean, rejected := scrub(snap)

	cands := Expand(clean, cfg, deps.Query)

	rv := &resolver{
		snap:      clean,
		cfg:       cfg,
		deps:      deps,
		resources: NewResources(clean.Tuners),
		result:    make(map[candKey]Recording),
		assigned:  make(map[ShowingID]*assignment),
		reflowed:  make(map[ShowingID]bool),
	}

	live := rv.seed(cands)
	dd := Dedup(clean, cfg, live, deps.History)

	if err := rv.blockLiveSessions(); err != nil {
		return nil, err
	}

	retained := slices.Clone(dd.retained)
	slices.SortFunc(retained, func(a, b Candidate) int {
		return compareCandidates(clean, cfg, a, b)
	})
	if err := rv.place(retained, dd); err != nil {
		return nil, err
	}
	if err := rv.postPass(); err != nil {
		return nil, err
	}

	// Suppressed candidates that did not acquire an outcome elsewhere (a
	// fallback may have promoted one) take their dedup status.
	for _, sp := range dd.suppressed {
		key := candKey{Rule: sp.Cand.RuleID, Showing: sp.Cand.ShowingID}
		if _, done := rv.result[key]; done {
			continue
		}
		r := clean.Rules[sp.Cand.RuleID]
		s := clean.Showings[sp.Cand.ShowingID]
		rv.finish(sp.Cand, Recording{
			Status:         sp.Status,
			OtherShowingID: sp.Other,
			Reason:         sp.Reason,
		}, PaddedInterval(r, s))
	}

	recs := make([]Recording, 0, len(rv.result))
	for _, key := range sortedResultKeys(rv.result) {
		recs = append(recs, rv.result[key])
	}
	slices.SortFunc(recs, func(a, b Recording) int {
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

	report := Report{
		SnapshotVersion:  clean.Version,
		Candidates:       len(cands),
		StatusCounts:     make(map[Status]int),
		ReflowsAttempted: rv.reflowsAttempted,
		ReflowsSucceeded: rv.reflowsSucceeded,
		Rejected:         rejected,
	}
	for _, rec := range recs {
		report.StatusCounts[rec.Status]++
	}

	return &Plan{
		Version:     clean.Version,
		GeneratedAt: clean.Now,
		Recordings:  recs,
		Report:      report,
	}, nil
}

func sortedResultKeys(m map[candKey]Recording) []candKey {
	keys := make([]candKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b candKey) int {
		if a.Rule != b.Rule {
			return strings.Compare(a.Rule, b.Rule)
		}
		return strings.Compare(string(a.Showing), string(b.Showing))
	})
	return keys
}

// Lookup returns the recording outcome for a showing under a specific rule.
func (p *Plan) Lookup(ruleID string, showingID ShowingID) (Recording, bool) {
	for _, rec := range p.Recordings {
		if rec.RuleID == ruleID && rec.ShowingID == showingID {
			return rec, true
		}
	}
	return Recording{}, false
}

// ForShowing returns every outcome touching the showing.
func (p *Plan) ForShowing(id ShowingID) []Recording {
	var out []Recording
	for _, rec := range p.Recordings {
		if rec.ShowingID == id {
			out = append(out, rec)
		}
	}
	return out
}
