// SPDX-License-Identifier: MIT

package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryFunc evaluates a custom-query rule's predicate against a showing. The
// predicate language is opaque to the planner.
type QueryFunc func(query string, s Showing) bool

// Matches evaluates whether the rule applies to the showing. It checks
// identity (showing or title), context (channel) and time (weekday, window).
func Matches(r Rule, s Showing, query QueryFunc) bool {
	switch r.Kind {
	case KindSingle, KindOverride, KindNeverRecord:
		return r.ShowingID == s.ID
	case KindTimeslot:
		return titleEqual(r, s) && r.ChannelID == s.ChannelID && inWindow(s, r.StartWindow)
	case KindWeekslot:
		return titleEqual(r, s) && r.ChannelID == s.ChannelID &&
			s.Start.Weekday() == r.Weekday && inWindow(s, r.StartWindow)
	case KindAll, KindDaily, KindWeekly, KindFindOne, KindFindDaily, KindFindWeekly:
		if r.ChannelID != "" && r.ChannelID != s.ChannelID {
			return false
		}
		return titleEqual(r, s)
	case KindCustomQuery:
		if query == nil {
			return false
		}
		return query(r.Query, s)
	}
	return false
}

func titleEqual(r Rule, s Showing) bool {
	if r.Title == "" {
		return false
	}
	if s.SeriesID != "" && r.Title == s.SeriesID {
		return true
	}
	return strings.EqualFold(r.Title, s.Title)
}

func inWindow(s Showing, window string) bool {
	if window == "" {
		return true
	}
	ok, err := IsTimeInWindow(s, window)
	if err != nil {
		// Invalid window config: fail the match to prevent unwanted
		// recordings.
		return false
	}
	return ok
}

// IsTimeInWindow checks whether the showing's start falls within the window
// "HHMM-HHMM" (or "HH:MM-HH:MM"). Supports midnight crossing, e.g.
// "2200-0200".
func IsTimeInWindow(s Showing, windowStr string) (bool, error) {
	clean := strings.ReplaceAll(windowStr, ":", "")
	parts := strings.Split(clean, "-")
	if len(parts) != 2 {
		return false, fmt.Errorf("invalid window format %q", windowStr)
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return false, err
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return false, err
	}

	startMins := (start/100)*60 + (start % 100)
	endMins := (end/100)*60 + (end % 100)
	tMins := s.Start.UTC().Hour()*60 + s.Start.UTC().Minute()

	switch {
	case startMins < endMins:
		// Standard window, inclusive start, exclusive end.
		return tMins >= startMins && tMins < endMins, nil
	case startMins > endMins:
		// Midnight crossing.
		return tMins >= startMins || tMins < endMins, nil
	default:
		// Treat an empty window as "never" for safety.
		return false, nil
	}
}

// Expand produces every rule/showing candidate in the snapshot. Inactive
// rules still expand so the resolver can report their showings as inactive.
// Output order is deterministic but carries no meaning; ordering is imposed
// by the resolver.
func Expand(snap Snapshot, cfg Config, query QueryFunc) []Candidate {
	var out []Candidate
	for _, rid := range sortedKeys(snap.Rules) {
		r := snap.Rules[rid]
		for _, sid := range sortedKeys(snap.Showings) {
			s := snap.Showings[sid]
			if !Matches(r, s, query) {
				continue
			}
			out = append(out, Candidate{
				RuleID:    rid,
				ShowingID: sid,
				Priority:  EffectivePriority(cfg, r, s, snap.Tuners),
			})
		}
	}
	return out
}
