// SPDX-License-Identifier: MIT

package plan

import (
	"fmt"
)

// Diagnostic describes one rejected input record. The cycle proceeds with the
// remaining valid records.
type Diagnostic struct {
	Kind   string `json:"kind"` // "rule" | "showing"
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

// ValidateRule checks a rule for structural problems.
func ValidateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("rule has empty id")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
	}
	if r.DedupPolicy != "" && !r.DedupPolicy.Valid() {
		return fmt.Errorf("rule %s: unknown dedup policy %q", r.ID, r.DedupPolicy)
	}
	if r.DedupScope != "" && !r.DedupScope.Valid() {
		return fmt.Errorf("rule %s: unknown dedup scope %q", r.ID, r.DedupScope)
	}
	switch r.Kind {
	case KindSingle, KindOverride, KindNeverRecord:
		if r.ShowingID == "" {
			return fmt.Errorf("rule %s: kind %s requires showing_id", r.ID, r.Kind)
		}
	case KindTimeslot, KindWeekslot:
		if r.ChannelID == "" {
			return fmt.Errorf("rule %s: kind %s requires channel_id", r.ID, r.Kind)
		}
		if r.StartWindow == "" {
			return fmt.Errorf("rule %s: kind %s requires start_window", r.ID, r.Kind)
		}
	case KindCustomQuery:
		if r.Query == "" {
			return fmt.Errorf("rule %s: kind custom_query requires query", r.ID)
		}
	default:
		if r.Title == "" {
			return fmt.Errorf("rule %s: kind %s requires title", r.ID, r.Kind)
		}
	}
	if r.StartOffsetSec < 0 || r.EndOffsetSec < 0 {
		return fmt.Errorf("rule %s: negative offsets", r.ID)
	}
	if r.MaxEpisodes < 0 {
		return fmt.Errorf("rule %s: negative max_episodes", r.ID)
	}
	return nil
}

// ValidateShowing checks a showing for structural problems.
func ValidateShowing(s Showing) error {
	if s.ID == "" {
		return fmt.Errorf("showing has empty id")
	}
	if s.ChannelID == "" {
		return fmt.Errorf("showing %s: empty channel_id", s.ID)
	}
	if s.Title == "" {
		return fmt.Errorf("showing %s: empty title", s.ID)
	}
	if s.Start.IsZero() || s.End.IsZero() {
		return fmt.Errorf("showing %s: zero start or end", s.ID)
	}
	if !s.End.After(s.Start) {
		return fmt.Errorf("showing %s: end %s not after start %s", s.ID, s.End, s.Start)
	}
	return nil
}

// ValidateTuner checks a tuner for structural problems.
func ValidateTuner(t Tuner) error {
	if t.ID == "" {
		return fmt.Errorf("tuner has empty id")
	}
	if t.InputGroup == "" {
		return fmt.Errorf("tuner %s: empty input_group", t.ID)
	}
	return nil
}

// scrub removes invalid records from the snapshot, collecting a diagnostic
// per rejected record. The returned snapshot shares no maps with the input.
func scrub(snap Snapshot) (Snapshot, []Diagnostic) {
	var diags []Diagnostic
	out := Snapshot{
		Version:      snap.Version,
		Now:          snap.Now,
		Rules:        make(map[string]Rule, len(snap.Rules)),
		Showings:     make(map[ShowingID]Showing, len(snap.Showings)),
		Tuners:       make(map[TunerID]Tuner, len(snap.Tuners)),
		Overrides:    snap.Overrides,
		LiveSessions: snap.LiveSessions,
	}
	for _, id := range sortedKeys(snap.Rules) {
		r := snap.Rules[id]
		if err := ValidateRule(r); err != nil {
			diags = append(diags, Diagnostic{Kind: "rule", ID: id, Detail: err.Error()})
			continue
		}
		out.Rules[id] = r
	}
	for _, id := range sortedKeys(snap.Showings) {
		s := snap.Showings[id]
		if err := ValidateShowing(s); err != nil {
			diags = append(diags, Diagnostic{Kind: "showing", ID: string(id), Detail: err.Error()})
			continue
		}
		out.Showings[id] = s
	}
	for _, id := range sortedKeys(snap.Tuners) {
		t := snap.Tuners[id]
		if err := ValidateTuner(t); err != nil {
			diags = append(diags, Diagnostic{Kind: "tuner", ID: string(id), Detail: err.Error()})
			continue
		}
		out.Tuners[id] = t
	}
	return out, diags
}
